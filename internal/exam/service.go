// Package exam orchestrates the exam lifecycle: question sourcing through an
// ordered fallback chain (AI generation first, question bank second),
// attempt creation, and scored submission.
package exam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/qbank"
	"github.com/rsharan/examgate/internal/scoring"
	"github.com/rsharan/examgate/internal/store"
)

// TabSwitchLimit is the proctoring threshold: a submission arriving with
// this many tab switches or more is flagged auto-submitted.
const TabSwitchLimit = 3

// Generator is the AI question source. It may fail for any reason; the
// service then falls back to the question bank.
type Generator interface {
	Generate(ctx context.Context, stream, subject string) (*model.SelectionResult, error)
}

// Service runs exam starts and submissions.
type Service struct {
	store    *store.Store
	gen      Generator // nil disables AI generation entirely
	fallback *qbank.Service
	engine   *scoring.Engine
}

// NewService creates the exam service. gen may be nil when no LLM is
// configured, in which case every exam uses the fallback bank.
func NewService(st *store.Store, gen Generator, fallback *qbank.Service, engine *scoring.Engine) *Service {
	return &Service{store: st, gen: gen, fallback: fallback, engine: engine}
}

// StartResult is a started exam plus its questions and the source tag.
type StartResult struct {
	Exam      model.Exam           `json:"exam"`
	Questions []model.ExamQuestion `json:"questions"`
	Source    model.QuestionSource `json:"source"`
}

// Start creates a new exam attempt for the student. Question sourcing runs
// as an ordered chain: AI generation first, then the fallback bank. A
// fallback failure is terminal for the request and surfaces as "unable to
// start exam".
func (s *Service) Start(ctx context.Context, studentID int64, stream, subject string) (*StartResult, error) {
	sel, source := s.selectQuestions(ctx, stream, subject)
	if sel == nil {
		fbSel, err := s.fallback.RandomQuestions(stream, subject)
		if err != nil {
			return nil, fmt.Errorf("unable to start exam: %w", err)
		}
		sel, source = fbSel, model.SourceFallback
	}

	exam, err := s.store.CreateExam(studentID, source, sel)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	questions, err := s.store.GetExamQuestions(exam.ID)
	if err != nil {
		return nil, fmt.Errorf("load exam questions: %w", err)
	}

	slog.Info("exam started",
		"exam_id", exam.ID, "student_id", studentID,
		"stream", stream, "subject", subject, "source", source)
	return &StartResult{Exam: *exam, Questions: questions, Source: source}, nil
}

// selectQuestions tries AI generation and returns nil when the caller
// should fall back.
func (s *Service) selectQuestions(ctx context.Context, stream, subject string) (*model.SelectionResult, model.QuestionSource) {
	if s.gen == nil {
		return nil, ""
	}
	sel, err := s.gen.Generate(ctx, stream, subject)
	if err != nil {
		slog.Warn("AI question generation failed, using question bank",
			"stream", stream, "subject", subject, "error", err)
		return nil, ""
	}
	return sel, model.SourceAI
}

// Submit scores a submission and persists the outcome atomically. Answers
// are keyed by exam question ID. Submitting a completed exam returns
// store.ErrAlreadySubmitted. Oracle failures during descriptive scoring
// degrade to 0 marks inside the engine and never fail the submission.
func (s *Service) Submit(ctx context.Context, examID int64, answers map[int64]string, tabSwitchCount int) (*model.ScoreReport, error) {
	exam, err := s.store.GetExam(examID)
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", examID, err)
	}
	if exam.Status == model.ExamCompleted {
		return nil, store.ErrAlreadySubmitted
	}

	questions, err := s.store.GetExamQuestions(examID)
	if err != nil {
		return nil, fmt.Errorf("load exam questions: %w", err)
	}

	report, perQuestion := s.engine.Score(ctx, questions, answers)
	report.AutoSubmitted = tabSwitchCount >= TabSwitchLimit

	if err := s.store.CompleteExam(examID, report, perQuestion, tabSwitchCount); err != nil {
		return nil, err
	}

	slog.Info("exam submitted",
		"exam_id", examID, "student_id", exam.StudentID, "subject", exam.Subject,
		"total_score", report.TotalScore, "percentage", report.Percentage,
		"category", report.Category, "auto_submitted", report.AutoSubmitted)
	return report, nil
}
