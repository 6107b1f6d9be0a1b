package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rsharan/examgate/internal/metrics"
	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/qbank"
	"github.com/rsharan/examgate/internal/scoring"
	"github.com/rsharan/examgate/internal/store"
)

// stubGenerator returns a canned selection or an error.
type stubGenerator struct {
	result *model.SelectionResult
	err    error
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, stream, subject string) (*model.SelectionResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

// stubScorer returns a fixed similarity for every descriptive answer.
type stubScorer struct {
	similarity float64
	err        error
}

func (s *stubScorer) Evaluate(context.Context, string, string) (float64, error) {
	return s.similarity, s.err
}

func testQuestions() []model.QuestionRecord {
	var records []model.QuestionRecord
	for i := 0; i < model.ExamMCQCount+2; i++ {
		records = append(records, model.QuestionRecord{
			Kind: model.KindMultipleChoice,
			Text: fmt.Sprintf("mcq %d", i),
			Options: []string{
				fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i),
				fmt.Sprintf("c%d", i), fmt.Sprintf("d%d", i),
			},
			Answer: fmt.Sprintf("a%d", i),
		})
	}
	for i := 0; i < model.ExamDescriptiveCount; i++ {
		records = append(records, model.QuestionRecord{
			Kind:   model.KindDescriptive,
			Text:   fmt.Sprintf("descriptive %d", i),
			Answer: fmt.Sprintf("model answer %d", i),
		})
	}
	return records
}

func newBankDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(map[string][]model.QuestionRecord{
		"Operating Systems": testQuestions(),
	})
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cse.json"), data, 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}
	return dir
}

func newTestService(t *testing.T, gen Generator, scorer scoring.SimilarityScorer) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fallback := qbank.NewService(
		qbank.NewReader(newBankDir(t)),
		qbank.NewCache(time.Minute),
		qbank.NewSampler(),
		metrics.NewCollector(),
	)
	return NewService(st, gen, fallback, scoring.NewEngine(scorer)), st
}

func newTestStudent(t *testing.T, st *store.Store) int64 {
	t.Helper()
	id, err := st.CreateUser(model.User{
		Username: "asha", PasswordHash: "hash",
		Role: model.UserRoleStudent, Stream: "cse", Active: true,
	})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return id
}

func TestStartUsesAIWhenAvailable(t *testing.T) {
	gen := &stubGenerator{result: &model.SelectionResult{
		Stream:         "cse",
		Subject:        "Operating Systems",
		MultipleChoice: testQuestions()[:model.ExamMCQCount],
		Descriptive:    testQuestions()[model.ExamMCQCount+2:],
		TotalAvailable: 10,
		SelectedAt:     time.Now(),
	}}
	svc, st := newTestService(t, gen, &stubScorer{})
	studentID := newTestStudent(t, st)

	result, err := svc.Start(context.Background(), studentID, "cse", "Operating Systems")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.Source != model.SourceAI {
		t.Errorf("source = %s, want ai", result.Source)
	}
	if result.Exam.Source != model.SourceAI {
		t.Errorf("persisted source = %s, want ai", result.Exam.Source)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if len(result.Questions) != 10 {
		t.Errorf("expected 10 questions, got %d", len(result.Questions))
	}
}

func TestStartFallsBackWhenGeneratorFails(t *testing.T) {
	gen := &stubGenerator{err: errors.New("LLM timeout")}
	svc, st := newTestService(t, gen, &stubScorer{})
	studentID := newTestStudent(t, st)

	result, err := svc.Start(context.Background(), studentID, "cse", "Operating Systems")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.Source != model.SourceFallback {
		t.Errorf("source = %s, want fallback", result.Source)
	}
	if len(result.Questions) != 10 {
		t.Errorf("expected 10 questions, got %d", len(result.Questions))
	}
}

func TestStartFallsBackWhenNoGenerator(t *testing.T) {
	svc, st := newTestService(t, nil, &stubScorer{})
	studentID := newTestStudent(t, st)

	result, err := svc.Start(context.Background(), studentID, "cse", "Operating Systems")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.Source != model.SourceFallback {
		t.Errorf("source = %s, want fallback", result.Source)
	}
}

func TestStartFailsWhenBothSourcesFail(t *testing.T) {
	gen := &stubGenerator{err: errors.New("LLM timeout")}
	svc, st := newTestService(t, gen, &stubScorer{})
	studentID := newTestStudent(t, st)

	_, err := svc.Start(context.Background(), studentID, "cse", "Unknown Subject")
	if err == nil {
		t.Fatal("expected error when both sources fail")
	}
	var nf *qbank.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected wrapped NotFoundError, got %v", err)
	}
}

func startTestExam(t *testing.T, svc *Service, st *store.Store) (*StartResult, int64) {
	t.Helper()
	studentID := newTestStudent(t, st)
	result, err := svc.Start(context.Background(), studentID, "cse", "Operating Systems")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return result, studentID
}

func TestSubmitScoresAndPersists(t *testing.T) {
	svc, st := newTestService(t, nil, &stubScorer{similarity: 0.5})
	result, studentID := startTestExam(t, svc, st)

	answers := make(map[int64]string)
	correctMCQ := 0
	for _, q := range result.Questions {
		switch q.Kind {
		case model.KindMultipleChoice:
			if correctMCQ < 3 {
				answers[q.ID] = q.Options[0] // options are built answer-first
				correctMCQ++
			} else {
				answers[q.ID] = "wrong"
			}
		case model.KindDescriptive:
			answers[q.ID] = "an honest attempt"
		}
	}

	report, err := svc.Submit(context.Background(), result.Exam.ID, answers, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.MCQScore != 3 {
		t.Errorf("MCQScore = %d, want 3", report.MCQScore)
	}
	// Two descriptive answers at 0.5 * 6 marks each.
	if report.DescriptiveScore != 6 {
		t.Errorf("DescriptiveScore = %v, want 6", report.DescriptiveScore)
	}
	if report.TotalScore != 9 || report.Percentage != 45 {
		t.Errorf("totals: %+v", report)
	}
	if report.Category != model.Category40To80 {
		t.Errorf("category = %s, want 40_to_80", report.Category)
	}
	if report.AutoSubmitted {
		t.Error("one tab switch should not auto-submit")
	}

	persisted, err := st.GetExam(result.Exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if persisted.Status != model.ExamCompleted || persisted.Percentage != 45 {
		t.Errorf("persisted exam: %+v", persisted)
	}
	rec, err := st.GetImprovement(studentID, "Operating Systems")
	if err != nil || rec == nil {
		t.Fatalf("GetImprovement: %v, %+v", err, rec)
	}
	if rec.CurrentScore != 45 {
		t.Errorf("improvement current = %v, want 45", rec.CurrentScore)
	}
}

func TestSubmitTwiceReturnsAlreadySubmitted(t *testing.T) {
	svc, st := newTestService(t, nil, &stubScorer{})
	result, _ := startTestExam(t, svc, st)

	if _, err := svc.Submit(context.Background(), result.Exam.ID, nil, 0); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), result.Exam.ID, nil, 0)
	if !errors.Is(err, store.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmitAutoSubmitsAtTabSwitchLimit(t *testing.T) {
	svc, st := newTestService(t, nil, &stubScorer{})
	result, _ := startTestExam(t, svc, st)

	report, err := svc.Submit(context.Background(), result.Exam.ID, nil, TabSwitchLimit)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !report.AutoSubmitted {
		t.Error("expected auto-submit at the tab switch limit")
	}
	persisted, _ := st.GetExam(result.Exam.ID)
	if !persisted.AutoSubmitted || persisted.TabSwitchCount != TabSwitchLimit {
		t.Errorf("persisted proctoring fields: %+v", persisted)
	}
}

func TestSubmitOracleFailureScoresZero(t *testing.T) {
	svc, st := newTestService(t, nil, &stubScorer{err: errors.New("connection refused")})
	result, _ := startTestExam(t, svc, st)

	answers := make(map[int64]string)
	for _, q := range result.Questions {
		if q.Kind == model.KindDescriptive {
			answers[q.ID] = "an answer the oracle never sees"
		}
	}

	report, err := svc.Submit(context.Background(), result.Exam.ID, answers, 0)
	if err != nil {
		t.Fatalf("Submit should not fail on oracle errors: %v", err)
	}
	if report.DescriptiveScore != 0 {
		t.Errorf("DescriptiveScore = %v, want 0", report.DescriptiveScore)
	}
}
