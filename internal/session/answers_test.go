package session

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/model"
)

func buildSet(t *testing.T, questions ...model.Question) *QuestionSet {
	t.Helper()
	exam := activeExam(questions...)
	return BuildQuestionSet(exam, questions, rand.New(rand.NewSource(1)))
}

func TestAnswerStoreReconcilesPersistedAnswers(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	q2 := essayQuestion("dua", 20)
	set := buildSet(t, q1, q2)

	persisted := []model.StudentAnswer{
		{QuestionID: q1.ID, Answer: "b"},
		{QuestionID: uuid.New(), Answer: "stale"}, // no longer in the exam
	}
	store := newAnswerStore(set, persisted)

	if got := store.Value(q1.ID); got != "b" {
		t.Fatalf("expected carried-over answer, got %q", got)
	}
	if got := store.Value(q2.ID); got != "" {
		t.Fatalf("expected empty answer for fresh question, got %q", got)
	}
	if len(store.Snapshot(set)) != 2 {
		t.Fatalf("stale answer leaked into snapshot: %d entries", len(store.Snapshot(set)))
	}
}

func TestAnswerStoreIgnoresUnknownQuestion(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	set := buildSet(t, q1)
	store := newAnswerStore(set, nil)

	store.Set(uuid.New(), "a")

	for _, a := range store.Snapshot(set) {
		if a.Answer != "" {
			t.Fatalf("unexpected answer recorded: %+v", a)
		}
	}
}

func TestSnapshotMarksMultipleChoiceCorrectness(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	q2 := mcQuestion("dua", 10, "b")
	q3 := essayQuestion("tiga", 20)
	set := buildSet(t, q1, q2, q3)
	store := newAnswerStore(set, nil)

	store.Set(q1.ID, "a") // correct
	store.Set(q2.ID, "c") // wrong
	store.Set(q3.ID, "jawaban esai")

	snap := store.Snapshot(set)
	byID := map[uuid.UUID]model.StudentAnswer{}
	for _, a := range snap {
		byID[a.QuestionID] = a
	}

	if a := byID[q1.ID]; a.IsCorrect == nil || !*a.IsCorrect {
		t.Fatalf("expected q1 correct, got %+v", a.IsCorrect)
	}
	if a := byID[q2.ID]; a.IsCorrect == nil || *a.IsCorrect {
		t.Fatalf("expected q2 incorrect, got %+v", a.IsCorrect)
	}
	if a := byID[q3.ID]; a.IsCorrect != nil {
		t.Fatal("essay answer must not carry a correctness flag")
	}
}

func TestSnapshotLeavesBlankMultipleChoiceUnmarked(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	set := buildSet(t, q1)
	store := newAnswerStore(set, nil)

	snap := store.Snapshot(set)
	if snap[0].IsCorrect != nil {
		t.Fatal("blank answer must stay unmarked until finalization")
	}
}

func TestUnansweredQuestionsNumbersPerTab(t *testing.T) {
	mc1 := mcQuestion("pg satu", 10, "a")
	mc2 := mcQuestion("pg dua", 10, "a")
	es1 := essayQuestion("esai satu", 20)
	es2 := essayQuestion("esai dua", 20)
	set := buildSet(t, mc1, mc2, es1, es2)
	store := newAnswerStore(set, nil)

	store.Set(mc1.ID, "a")
	store.Set(es2.ID, "   ") // whitespace-only counts as blank

	got := store.UnansweredQuestions(set)
	wantLabels := []string{"Soal 2 (PG)", "Soal 1 (Esai)", "Soal 2 (Esai)"}
	if len(got) != len(wantLabels) {
		t.Fatalf("expected %d unanswered, got %d", len(wantLabels), len(got))
	}
	for i, want := range wantLabels {
		if got[i].Label() != want {
			t.Fatalf("unanswered %d: expected %q, got %q", i, want, got[i].Label())
		}
	}
}

func TestUnansweredQuestionsEmptyWhenComplete(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	q2 := essayQuestion("dua", 20)
	set := buildSet(t, q1, q2)
	store := newAnswerStore(set, nil)

	store.Set(q1.ID, "b")
	store.Set(q2.ID, "jawaban")

	if got := store.UnansweredQuestions(set); len(got) != 0 {
		t.Fatalf("expected no unanswered questions, got %d", len(got))
	}
}
