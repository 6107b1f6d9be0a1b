package store

import (
	"fmt"
	"time"

	"github.com/rsharan/examgate/internal/model"
)

// ExportCompletedAttempts builds export-ready results from all completed
// exams, including correct answers and per-question marks.
func (s *Store) ExportCompletedAttempts() (model.ResultsExport, error) {
	export := model.ResultsExport{ExportedAt: time.Now()}

	exams, err := s.ListExams()
	if err != nil {
		return export, fmt.Errorf("list exams: %w", err)
	}

	for _, e := range exams {
		if e.Status != model.ExamCompleted {
			continue
		}

		user, err := s.GetUserByID(e.StudentID)
		if err != nil {
			return export, fmt.Errorf("get user %d: %w", e.StudentID, err)
		}
		var username, displayName string
		if user != nil {
			username = user.Username
			displayName = user.DisplayName
		}

		questions, err := s.GetExamQuestions(e.ID)
		if err != nil {
			return export, fmt.Errorf("get questions for exam %d: %w", e.ID, err)
		}
		var exported []model.QuestionExport
		for _, q := range questions {
			exported = append(exported, model.QuestionExport{
				Kind:          q.Kind,
				Text:          q.Text,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				StudentAnswer: q.StudentAnswer,
				MarksObtained: q.MarksObtained,
			})
		}

		export.Attempts = append(export.Attempts, model.AttemptExport{
			ExamID:           e.ID,
			Username:         username,
			DisplayName:      displayName,
			Stream:           e.Stream,
			Subject:          e.Subject,
			Source:           e.Source,
			Status:           e.Status,
			MCQScore:         e.MCQScore,
			DescriptiveScore: e.DescriptiveScore,
			TotalScore:       e.TotalScore,
			Percentage:       e.Percentage,
			AutoSubmitted:    e.AutoSubmitted,
			StartedAt:        e.StartedAt,
			CompletedAt:      e.CompletedAt,
			Questions:        exported,
		})
	}

	return export, nil
}
