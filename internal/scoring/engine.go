// Package scoring computes exam scores: exact-match marking for
// multiple-choice answers and similarity-oracle marking for descriptive
// answers, with numeric sanitization so no NaN or Infinity ever reaches
// persisted state.
package scoring

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/rsharan/examgate/internal/model"
)

// SimilarityScorer is the external oracle contract for descriptive answers.
// Implementations return a similarity in [0,1]; the engine clamps and
// sanitizes whatever comes back.
type SimilarityScorer interface {
	Evaluate(ctx context.Context, modelAnswer, studentAnswer string) (float64, error)
}

// QuestionScore pairs one exam question with the marks awarded for it.
type QuestionScore struct {
	QuestionID int64
	Answer     string
	Marks      float64
}

// Engine scores exam submissions.
type Engine struct {
	scorer SimilarityScorer
}

// NewEngine creates an Engine backed by the given similarity oracle.
func NewEngine(scorer SimilarityScorer) *Engine {
	return &Engine{scorer: scorer}
}

// Score marks every question against the submitted answers and returns the
// aggregate report plus per-question marks.
//
// Multiple-choice: 1 mark for a case-sensitive exact match with the stored
// correct label, 0 otherwise (including unanswered). Descriptive: similarity
// from the oracle, clamped to [0,1], scaled by the per-question maximum; an
// oracle failure or empty answer scores 0 and never aborts the submission.
func (e *Engine) Score(ctx context.Context, questions []model.ExamQuestion, answers map[int64]string) (*model.ScoreReport, []QuestionScore) {
	report := &model.ScoreReport{}
	perQuestion := make([]QuestionScore, 0, len(questions))

	for _, q := range questions {
		answer := answers[q.ID]
		var marks float64

		switch q.Kind {
		case model.KindMultipleChoice:
			if answer == q.CorrectAnswer {
				marks = 1
				report.MCQScore++
			}
		case model.KindDescriptive:
			marks = e.scoreDescriptive(ctx, q, answer)
			report.DescriptiveScore += marks
		}

		perQuestion = append(perQuestion, QuestionScore{QuestionID: q.ID, Answer: answer, Marks: marks})
	}

	report.DescriptiveScore = Round2(report.DescriptiveScore)
	report.TotalScore = Round2(float64(report.MCQScore) + report.DescriptiveScore)
	report.Percentage = Round2(report.TotalScore / model.ExamTotalMarks * 100)
	report.Category = Classify(report.Percentage)
	return report, perQuestion
}

func (e *Engine) scoreDescriptive(ctx context.Context, q model.ExamQuestion, answer string) float64 {
	if strings.TrimSpace(answer) == "" {
		return 0
	}
	similarity, err := e.scorer.Evaluate(ctx, q.CorrectAnswer, answer)
	if err != nil {
		// Oracle failures degrade to a 0 score, never abort the submission.
		slog.Warn("similarity oracle failed, scoring 0",
			"question_id", q.ID, "error", err)
		return 0
	}
	similarity = clamp01(sanitize(similarity))
	return Round2(similarity * model.DescriptiveMaxMarks)
}

// Classify maps a percentage to its resource tier. Boundary values belong to
// the lower tier.
func Classify(percentage float64) model.PerformanceCategory {
	switch {
	case percentage <= 40:
		return model.CategoryBelow40
	case percentage <= 80:
		return model.Category40To80
	default:
		return model.CategoryAbove80
	}
}

// Round2 rounds to 2 decimals, mapping non-finite input to 0 first.
func Round2(v float64) float64 {
	return math.Round(sanitize(v)*100) / 100
}

// sanitize maps NaN and Infinity to 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
