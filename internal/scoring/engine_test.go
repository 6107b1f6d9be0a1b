package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rsharan/examgate/internal/model"
)

// stubScorer returns a fixed similarity, or an error, per model answer.
type stubScorer struct {
	similarity map[string]float64
	err        error
}

func (s *stubScorer) Evaluate(_ context.Context, modelAnswer, _ string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.similarity[modelAnswer], nil
}

func mcqQuestion(id int64, correct string) model.ExamQuestion {
	return model.ExamQuestion{
		ID:            id,
		Kind:          model.KindMultipleChoice,
		Text:          "pick one",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: correct,
	}
}

func descQuestion(id int64, answer string) model.ExamQuestion {
	return model.ExamQuestion{
		ID:            id,
		Kind:          model.KindDescriptive,
		Text:          "explain",
		CorrectAnswer: answer,
	}
}

func TestScoreMCQExactMatch(t *testing.T) {
	e := NewEngine(&stubScorer{})
	questions := []model.ExamQuestion{
		mcqQuestion(1, "b"),
		mcqQuestion(2, "c"),
		mcqQuestion(3, "a"),
	}
	answers := map[int64]string{
		1: "b", // correct
		2: "C", // wrong case, no credit
		// 3 unanswered
	}

	report, perQuestion := e.Score(context.Background(), questions, answers)
	if report.MCQScore != 1 {
		t.Errorf("MCQScore = %d, want 1", report.MCQScore)
	}
	if perQuestion[0].Marks != 1 || perQuestion[1].Marks != 0 || perQuestion[2].Marks != 0 {
		t.Errorf("per-question marks: %+v", perQuestion)
	}
}

func TestScoreDescriptiveScaling(t *testing.T) {
	e := NewEngine(&stubScorer{similarity: map[string]float64{"model answer": 0.83}})
	questions := []model.ExamQuestion{descQuestion(1, "model answer")}

	report, perQuestion := e.Score(context.Background(), questions, map[int64]string{1: "my answer"})
	// 0.83 * 6 = 4.98
	if perQuestion[0].Marks != 4.98 {
		t.Errorf("marks = %v, want 4.98", perQuestion[0].Marks)
	}
	if report.DescriptiveScore != 4.98 {
		t.Errorf("DescriptiveScore = %v, want 4.98", report.DescriptiveScore)
	}
}

func TestScoreDescriptiveClampsSimilarity(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		want       float64
	}{
		{"above one", 1.4, 6},
		{"negative", -0.5, 0},
		{"NaN", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(&stubScorer{similarity: map[string]float64{"ref": tt.similarity}})
			questions := []model.ExamQuestion{descQuestion(1, "ref")}

			_, perQuestion := e.Score(context.Background(), questions, map[int64]string{1: "answer"})
			if perQuestion[0].Marks != tt.want {
				t.Errorf("marks = %v, want %v", perQuestion[0].Marks, tt.want)
			}
		})
	}
}

func TestScoreDescriptiveEmptyAnswerSkipsOracle(t *testing.T) {
	// An oracle error here would score 0 anyway, but the empty answer must
	// not reach the oracle at all.
	e := NewEngine(&stubScorer{err: errors.New("should not be called")})
	questions := []model.ExamQuestion{descQuestion(1, "ref")}

	_, perQuestion := e.Score(context.Background(), questions, map[int64]string{1: "   "})
	if perQuestion[0].Marks != 0 {
		t.Errorf("marks = %v, want 0", perQuestion[0].Marks)
	}
}

func TestScoreOracleFailureDegradesToZero(t *testing.T) {
	e := NewEngine(&stubScorer{err: errors.New("connection refused")})
	questions := []model.ExamQuestion{
		mcqQuestion(1, "a"),
		descQuestion(2, "ref"),
	}

	report, perQuestion := e.Score(context.Background(), questions, map[int64]string{1: "a", 2: "an answer"})
	if perQuestion[1].Marks != 0 {
		t.Errorf("oracle failure should score 0, got %v", perQuestion[1].Marks)
	}
	// The rest of the submission still scores.
	if report.MCQScore != 1 || report.TotalScore != 1 {
		t.Errorf("report: %+v", report)
	}
}

func TestScoreAggregates(t *testing.T) {
	e := NewEngine(&stubScorer{similarity: map[string]float64{"d1": 0.5, "d2": 1.0}})
	questions := []model.ExamQuestion{
		mcqQuestion(1, "a"), mcqQuestion(2, "b"), mcqQuestion(3, "c"),
		descQuestion(4, "d1"), descQuestion(5, "d2"),
	}
	answers := map[int64]string{1: "a", 2: "b", 3: "x", 4: "ans", 5: "ans"}

	report, _ := e.Score(context.Background(), questions, answers)
	if report.MCQScore != 2 {
		t.Errorf("MCQScore = %d, want 2", report.MCQScore)
	}
	if report.DescriptiveScore != 9 { // 3 + 6
		t.Errorf("DescriptiveScore = %v, want 9", report.DescriptiveScore)
	}
	if report.TotalScore != 11 {
		t.Errorf("TotalScore = %v, want 11", report.TotalScore)
	}
	if report.Percentage != 55 { // 11/20
		t.Errorf("Percentage = %v, want 55", report.Percentage)
	}
	if report.Category != model.Category40To80 {
		t.Errorf("Category = %s, want 40_to_80", report.Category)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		percentage float64
		want       model.PerformanceCategory
	}{
		{0, model.CategoryBelow40},
		{39.99, model.CategoryBelow40},
		{40, model.CategoryBelow40}, // boundary belongs to the lower tier
		{40.01, model.Category40To80},
		{55, model.Category40To80},
		{80, model.Category40To80}, // boundary belongs to the lower tier
		{80.01, model.CategoryAbove80},
		{100, model.CategoryAbove80},
	}
	for _, tt := range tests {
		if got := Classify(tt.percentage); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.percentage, got, tt.want)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{4.98, 4.98},
		{4.986, 4.99},
		{-1.004, -1},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
