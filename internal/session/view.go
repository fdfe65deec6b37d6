package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/model"
)

// OptionView is a multiple-choice option stripped of its correctness flag.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is a question as presented to the student: no answer key, no
// reference answer. Media and math strings pass through unmodified.
type QuestionView struct {
	ID          uuid.UUID          `json:"id"`
	Type        model.QuestionType `json:"type"`
	Text        string             `json:"text"`
	ImageURL    string             `json:"image_url,omitempty"`
	AudioURL    string             `json:"audio_url,omitempty"`
	MathFormula string             `json:"math_formula,omitempty"`
	Options     []OptionView       `json:"options,omitempty"`
	Points      float64            `json:"points"`
}

// GateErrorView serializes a terminal gate failure.
type GateErrorView struct {
	Kind    GateKind   `json:"kind"`
	OpensAt *time.Time `json:"opens_at,omitempty"`
}

// Snapshot is a point-in-time view of the whole session, sufficient for a
// client to render after a cold reload.
type Snapshot struct {
	State             State             `json:"state"`
	GateError         *GateErrorView    `json:"gate_error,omitempty"`
	TokenNotice       bool              `json:"token_notice,omitempty"`
	ExamTitle         string            `json:"exam_title,omitempty"`
	PrerequisitesText string            `json:"prerequisites_text,omitempty"`
	DurationMinutes   int               `json:"duration_minutes,omitempty"`
	RemainingSeconds  int               `json:"remaining_seconds"`
	ShowTabs          bool              `json:"show_tabs"`
	ActiveTab         Tab               `json:"active_tab,omitempty"`
	TabIndex          int               `json:"tab_index"`
	MultipleChoice    []QuestionView    `json:"multiple_choice,omitempty"`
	Essay             []QuestionView    `json:"essay,omitempty"`
	Answers           map[string]string `json:"answers,omitempty"`
	WarningActive     bool              `json:"warning_active"`
	AwaitingConfirm   bool              `json:"awaiting_confirm"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty"`
}

// Snapshot renders the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:           c.state,
		TokenNotice:     c.tokenNotice,
		ActiveTab:       c.activeTab,
		TabIndex:        c.tabIndex[c.activeTab],
		WarningActive:   c.warningActive,
		AwaitingConfirm: c.awaitingConfirm,
	}
	if c.gateErr != nil {
		snap.GateError = &GateErrorView{Kind: c.gateErr.Kind, OpensAt: c.gateErr.OpensAt}
	}
	if c.exam != nil {
		snap.ExamTitle = c.exam.Title
		snap.DurationMinutes = c.exam.DurationMinutes
		if c.state == StateAwaitingAcknowledgement {
			snap.PrerequisitesText = c.exam.PrerequisitesText
		}
	}
	if c.set != nil {
		snap.ShowTabs = c.set.HasBothTypes()
		snap.MultipleChoice = viewQuestions(c.set.MultipleChoice)
		snap.Essay = viewQuestions(c.set.Essay)
	}
	if c.answers != nil && c.set != nil {
		snap.Answers = make(map[string]string, len(c.set.Questions))
		for _, q := range c.set.Questions {
			snap.Answers[q.ID.String()] = c.answers.Value(q.ID)
		}
	}
	if c.clock != nil && c.state == StateInProgress {
		snap.RemainingSeconds = int(c.clock.Remaining(c.now()).Seconds())
	}
	if c.submission.IsFinal() {
		snap.SubmittedAt = c.submission.SubmittedAt
	}
	return snap
}

func viewQuestions(questions []model.Question) []QuestionView {
	if len(questions) == 0 {
		return nil
	}
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		v := QuestionView{
			ID:          q.ID,
			Type:        q.Type,
			Text:        q.Text,
			ImageURL:    q.ImageURL,
			AudioURL:    q.AudioURL,
			MathFormula: q.MathFormula,
			Points:      q.Points,
		}
		for _, o := range q.Options {
			v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text})
		}
		views[i] = v
	}
	return views
}
