package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/model"
)

// State is the session lifecycle position.
type State string

const (
	StateLoading                 State = "LOADING"
	StateAwaitingAcknowledgement State = "AWAITING_ACKNOWLEDGEMENT"
	StateAwaitingToken           State = "AWAITING_TOKEN"
	StateInProgress              State = "IN_PROGRESS"
	StateFinished                State = "FINISHED"
	StateError                   State = "ERROR"
)

// Tab identifies one of the two navigation sub-lists.
type Tab string

const (
	TabMultipleChoice Tab = "mcq"
	TabEssay          Tab = "essay"
)

const (
	// AutosaveDebounce is the inactivity window before a flush.
	AutosaveDebounce = 2500 * time.Millisecond
	// TickInterval is the countdown granularity.
	TickInterval = time.Second
)

// Config wires a Controller to its collaborators. Now and Rand default to
// the wall clock and a time-seeded source when nil.
type Config struct {
	Catalog     Catalog
	Submissions SubmissionStore
	Audit       AuditSink
	Logger      zerolog.Logger
	Now         func() time.Time
	Rand        *rand.Rand
}

// Controller is the state machine for one student's single attempt at one
// exam. Timers and transport handlers all funnel their events through the
// mutex-guarded methods below, so inside a session there is one logical
// thread of control; across sessions no locking is shared at all.
type Controller struct {
	mu sync.Mutex

	catalog Catalog
	subs    SubmissionStore
	audit   AuditSink
	log     zerolog.Logger
	now     func() time.Time
	rng     *rand.Rand

	examID    uuid.UUID
	studentID int

	state       State
	gateErr     *GateError
	flags       gateFlags
	tokenNotice bool

	exam       *model.Exam
	set        *QuestionSet
	answers    *AnswerStore
	submission *model.StudentSubmission
	clock      *Clock

	activeTab Tab
	tabIndex  map[Tab]int

	dirty   bool
	dirtyAt time.Time

	autoFired       bool
	warningActive   bool
	awaitingConfirm bool
}

// New creates a Controller in the Loading state. Call Load before anything
// else, then Run to drive the countdown and autosave timers.
func New(examID uuid.UUID, studentID int, cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Controller{
		catalog:   cfg.Catalog,
		subs:      cfg.Submissions,
		audit:     cfg.Audit,
		log:       cfg.Logger.With().Str("exam_id", examID.String()).Int("student_id", studentID).Logger(),
		now:       now,
		rng:       rng,
		examID:    examID,
		studentID: studentID,
		state:     StateLoading,
		activeTab: TabMultipleChoice,
		tabIndex:  map[Tab]int{TabMultipleChoice: 0, TabEssay: 0},
	}
}

// Load pulls the exam and any existing submission and resolves the entry
// path: terminal replay, a gate suspension, a gate failure, or straight into
// the live session. Safe to call only from Loading; later calls are no-ops.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoading {
		return nil
	}

	exam, err := c.catalog.GetExamByID(ctx, c.examID)
	if err != nil || exam == nil {
		if err != nil {
			c.log.Error().Err(err).Msg("exam lookup failed")
		}
		c.fail(&GateError{Kind: GateNotFound})
		return nil
	}
	c.exam = exam

	sub, err := c.subs.GetSubmission(ctx, c.examID, c.studentID)
	if err != nil {
		// Leave the session in Loading so the student can reopen and retry.
		return err
	}
	c.submission = sub

	if sub.IsFinal() {
		c.enterReplay(ctx)
		return nil
	}

	return c.resolveGates(ctx)
}

// Acknowledge records the prerequisite acknowledgement and re-runs the gate
// sequence. Ignored outside AwaitingAcknowledgement.
func (c *Controller) Acknowledge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingAcknowledgement {
		return nil
	}
	c.flags.acknowledged = true
	return c.resolveGates(ctx)
}

// SubmitToken validates the exam entry token. A mismatch keeps the session in
// AwaitingToken with a notice; retries are unlimited.
func (c *Controller) SubmitToken(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingToken {
		return ErrNotInProgress
	}
	if !matchToken(c.exam, token) {
		c.tokenNotice = true
		return ErrInvalidToken
	}
	c.tokenNotice = false
	c.flags.tokenValidated = true
	return c.resolveGates(ctx)
}

// SetAnswer updates the in-memory answer and arms the autosave debounce.
// Synchronous; no persistence happens here.
func (c *Controller) SetAnswer(questionID uuid.UUID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return ErrNotInProgress
	}
	c.answers.Set(questionID, value)
	c.dirty = true
	c.dirtyAt = c.now()
	return nil
}

// SetPosition moves the navigation cursor. Out-of-range indexes are clamped
// silently, never errored.
func (c *Controller) SetPosition(tab Tab, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return ErrNotInProgress
	}
	list := c.set.MultipleChoice
	if tab == TabEssay {
		list = c.set.Essay
	}
	if len(list) == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	if index > len(list)-1 {
		index = len(list) - 1
	}
	c.activeTab = tab
	c.tabIndex[tab] = index
	return nil
}

// RequestSubmit starts a manual submission. If any question is unanswered the
// session stays InProgress and the advisory list comes back for confirmation;
// otherwise the submission finalizes immediately and finished is true.
func (c *Controller) RequestSubmit(ctx context.Context) (unanswered []Unanswered, finished bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return nil, false, ErrNotInProgress
	}
	unanswered = c.answers.UnansweredQuestions(c.set)
	if len(unanswered) > 0 {
		c.awaitingConfirm = true
		return unanswered, false, nil
	}
	if err := c.finalize(ctx); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// ConfirmSubmit completes a manual submission despite unanswered questions.
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return ErrNotInProgress
	}
	return c.finalize(ctx)
}

// CancelSubmit dismisses the unanswered-question advisory and resumes.
func (c *Controller) CancelSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaitingConfirm = false
}

// ForceTimeout ends the session from outside (e.g. a proctor action),
// bypassing the unanswered-question advisory like the clock path does.
func (c *Controller) ForceTimeout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return nil
	}
	return c.finalize(ctx)
}

// Tick advances the countdown and the autosave debounce. Driven once per
// second by Run; both timers act on the same synchronously-updated answer
// snapshot, so firing in the same tick cannot conflict.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return
	}

	if c.clock.Expired(now) && !c.autoFired {
		c.autoFired = true
		if err := c.finalize(ctx); err != nil {
			// Retry on the next tick; in-memory answers are intact.
			c.autoFired = false
		}
		return
	}

	if c.dirty && now.Sub(c.dirtyAt) >= AutosaveDebounce {
		c.flushAutosave(ctx, now)
	}
}

// ReportHidden handles a page-visibility transition to hidden. The first
// transition per unacknowledged warning raises one audit signal; the return
// value tells the transport whether to surface the warning.
func (c *Controller) ReportHidden(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress || len(c.set.Questions) == 0 || c.warningActive {
		return false
	}
	c.warningActive = true
	c.audit.Record(ctx, AuditEvent{
		Kind:      AuditKindLeftExamTab,
		ExamID:    c.examID,
		StudentID: c.studentID,
		Timestamp: c.now(),
		Detail:    "Siswa meninggalkan tab saat mengerjakan ujian.",
	})
	return true
}

// AcknowledgeWarning clears the tab warning; the next hidden transition may
// raise a fresh signal.
func (c *Controller) AcknowledgeWarning() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warningActive = false
}

// UnloadAttempt reports whether leaving the page should ask for browser-level
// confirmation. Advisory only.
func (c *Controller) UnloadAttempt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateInProgress && len(c.set.Questions) > 0
}

// Run drives the per-second tick until the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx, c.now())
		}
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Finished reports whether the session reached its terminal state.
func (c *Controller) Finished() bool {
	return c.State() == StateFinished
}

// ── internal transitions (callers hold c.mu) ────────────────────────────

// resolveGates walks the gate sequence and advances as far as it allows.
func (c *Controller) resolveGates(ctx context.Context) error {
	outcome, gerr := evaluateGates(c.exam, c.flags, c.now())
	if gerr != nil {
		c.fail(gerr)
		return nil
	}
	switch outcome {
	case gateAwaitAcknowledgement:
		c.state = StateAwaitingAcknowledgement
		return nil
	case gateAwaitToken:
		c.state = StateAwaitingToken
		return nil
	}
	return c.begin(ctx)
}

// begin enters the live session: fixes the submission (and with it the
// authoritative start instant), builds or rebuilds the question set, seeds
// the answer store and starts the countdown.
func (c *Controller) begin(ctx context.Context) error {
	now := c.now()

	if c.submission == nil {
		sub := &model.StudentSubmission{
			ID:        uuid.New(),
			ExamID:    c.examID,
			StudentID: c.studentID,
			StartTime: now,
		}
		if err := c.subs.CreateSubmission(ctx, sub); err != nil {
			return err
		}
		c.submission = sub
	}

	ids := make([]uuid.UUID, len(c.exam.Questions))
	for i, eq := range c.exam.Questions {
		ids[i] = eq.QuestionID
	}
	catalog, err := c.catalog.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return err
	}

	if len(c.submission.QuestionOrder) > 0 {
		// A reload must reproduce the original shuffle, so rebuild from the
		// persisted permutation instead of drawing fresh randomness.
		c.set = RebuildQuestionSet(c.exam, catalog, c.submission.QuestionOrder, c.submission.OptionOrder)
	} else {
		c.set = BuildQuestionSet(c.exam, catalog, c.rng)
		c.submission.QuestionOrder = c.set.Order()
		c.submission.OptionOrder = c.set.OptionOrder()
		if err := c.subs.UpdateSubmission(ctx, c.submission); err != nil {
			// The order also rides along with every autosave flush.
			c.log.Warn().Err(err).Msg("persist question order failed")
		}
	}

	c.answers = newAnswerStore(c.set, c.submission.Answers)
	c.clock = NewClock(c.submission.StartTime, c.exam.DurationMinutes)
	if len(c.set.MultipleChoice) == 0 && len(c.set.Essay) > 0 {
		c.activeTab = TabEssay
	}
	c.state = StateInProgress

	if c.clock.Expired(now) {
		c.autoFired = true
		if err := c.finalize(ctx); err != nil {
			c.autoFired = false
		}
	}
	return nil
}

// enterReplay shows an already-sealed submission read-only, bypassing all
// gates. The built order is reconstructed purely for display.
func (c *Controller) enterReplay(ctx context.Context) {
	catalog, err := c.catalog.GetQuestionsByIDs(ctx, c.submission.QuestionOrder)
	if err != nil {
		c.log.Warn().Err(err).Msg("replay question lookup failed")
		catalog = nil
	}
	c.set = RebuildQuestionSet(c.exam, catalog, c.submission.QuestionOrder, c.submission.OptionOrder)
	c.answers = newAnswerStore(c.set, c.submission.Answers)
	c.autoFired = true
	c.state = StateFinished
}

// fail moves the session into the terminal Error state.
func (c *Controller) fail(gerr *GateError) {
	c.gateErr = gerr
	c.state = StateError
}

// finalize routes every terminal path through the single Finalizer write.
func (c *Controller) finalize(ctx context.Context) error {
	if err := Finalize(ctx, c.subs, c.submission, c.set, c.answers, c.now()); err != nil {
		c.log.Error().Err(err).Msg("finalize failed")
		return err
	}
	c.dirty = false
	c.awaitingConfirm = false
	c.state = StateFinished
	c.log.Info().Float64("total_score", *c.submission.TotalScore).Msg("session finished")
	return nil
}

// flushAutosave writes the current answer snapshot to the store. Failures are
// logged and retried on the next debounce window; the in-memory store remains
// the source of truth either way.
func (c *Controller) flushAutosave(ctx context.Context, now time.Time) {
	if c.submission.IsFinal() {
		c.dirty = false
		return
	}
	snapshot := c.answers.Snapshot(c.set)
	c.submission.Answers = snapshot
	if err := c.subs.UpdateSubmission(ctx, c.submission); err != nil {
		c.log.Warn().Err(err).Msg("autosave failed, will retry")
		c.dirtyAt = now
		return
	}
	c.dirty = false
}
