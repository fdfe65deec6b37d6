package session

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/model"
)

func TestBuildQuestionSetKeepsExamOrderWithoutRandomize(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	q2 := mcQuestion("dua", 10, "b")
	q3 := essayQuestion("tiga", 20)
	exam := activeExam(q1, q2, q3)

	set := BuildQuestionSet(exam, []model.Question{q3, q1, q2}, rand.New(rand.NewSource(7)))

	want := []uuid.UUID{q1.ID, q2.ID, q3.ID}
	got := set.Order()
	if len(got) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("question %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestBuildQuestionSetDropsDanglingReferences(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	exam := activeExam(q1)
	exam.Questions = append(exam.Questions, model.ExamQuestion{QuestionID: uuid.New(), Points: 5})

	set := BuildQuestionSet(exam, []model.Question{q1}, rand.New(rand.NewSource(1)))

	if len(set.Questions) != 1 || set.Questions[0].ID != q1.ID {
		t.Fatalf("expected only the resolvable question, got %d", len(set.Questions))
	}
}

func TestBuildQuestionSetAppliesPointOverrides(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	exam := activeExam(q1)
	exam.Questions[0].Points = 25

	set := BuildQuestionSet(exam, []model.Question{q1}, rand.New(rand.NewSource(1)))

	if set.Questions[0].Points != 25 {
		t.Fatalf("expected override points 25, got %v", set.Questions[0].Points)
	}
}

func TestBuildQuestionSetPartitionsByType(t *testing.T) {
	mc := mcQuestion("pg", 10, "a")
	es := essayQuestion("esai", 20)
	exam := activeExam(mc, es)

	set := BuildQuestionSet(exam, []model.Question{mc, es}, rand.New(rand.NewSource(1)))

	if len(set.MultipleChoice) != 1 || set.MultipleChoice[0].ID != mc.ID {
		t.Fatal("multiple-choice partition wrong")
	}
	if len(set.Essay) != 1 || set.Essay[0].ID != es.ID {
		t.Fatal("essay partition wrong")
	}
	if !set.HasBothTypes() {
		t.Fatal("expected both tabs")
	}
}

func TestRebuildReproducesShuffledOrder(t *testing.T) {
	questions := []model.Question{
		mcQuestion("satu", 10, "a"),
		mcQuestion("dua", 10, "b"),
		mcQuestion("tiga", 10, "c"),
		essayQuestion("empat", 20),
		essayQuestion("lima", 20),
	}
	exam := activeExam(questions...)
	exam.RandomizeQuestions = true
	exam.RandomizeAnswers = true

	built := BuildQuestionSet(exam, questions, rand.New(rand.NewSource(99)))

	// Simulate a reload: the catalog comes back in canonical order and the
	// permutation comes from persistence, with no randomness source at all.
	rebuilt := RebuildQuestionSet(exam, questions, built.Order(), built.OptionOrder())

	if len(rebuilt.Questions) != len(built.Questions) {
		t.Fatalf("question count changed on rebuild: %d vs %d", len(rebuilt.Questions), len(built.Questions))
	}
	for i := range built.Questions {
		if rebuilt.Questions[i].ID != built.Questions[i].ID {
			t.Fatalf("question %d reordered on rebuild", i)
		}
		bOpts := built.Questions[i].Options
		rOpts := rebuilt.Questions[i].Options
		if len(bOpts) != len(rOpts) {
			t.Fatalf("question %d option count changed", i)
		}
		for j := range bOpts {
			if rOpts[j].ID != bOpts[j].ID {
				t.Fatalf("question %d option %d reordered on rebuild", i, j)
			}
		}
	}
}

func TestRebuildSkipsUnknownAndKeepsPoints(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	exam := activeExam(q1)
	exam.Questions[0].Points = 40
	order := []uuid.UUID{uuid.New(), q1.ID}

	set := RebuildQuestionSet(exam, []model.Question{q1}, order, nil)

	if len(set.Questions) != 1 {
		t.Fatalf("expected dangling order entry skipped, got %d questions", len(set.Questions))
	}
	if set.Questions[0].Points != 40 {
		t.Fatalf("expected override points 40 on rebuild, got %v", set.Questions[0].Points)
	}
}

func TestReorderOptionsHandlesDrift(t *testing.T) {
	opts := []model.QuestionOption{
		{ID: "a", Text: "A"},
		{ID: "b", Text: "B"},
		{ID: "c", Text: "C"},
	}

	// Stored permutation references a removed option and misses a new one.
	got := reorderOptions(opts, []string{"c", "x", "a"})

	wantIDs := []string{"c", "a", "b"}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d options, got %d", len(wantIDs), len(got))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Fatalf("option %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestQuestionSetByID(t *testing.T) {
	q1 := mcQuestion("satu", 10, "a")
	exam := activeExam(q1)
	set := BuildQuestionSet(exam, []model.Question{q1}, rand.New(rand.NewSource(1)))

	if set.ByID(q1.ID) == nil {
		t.Fatal("expected to find built question")
	}
	if set.ByID(uuid.New()) != nil {
		t.Fatal("expected nil for unknown id")
	}
}
