package scoring

import (
	"time"

	"github.com/rsharan/examgate/internal/model"
)

// RecordAttempt folds one completed attempt's percentage into a student's
// improvement record for a subject. A nil existing record means this is the
// first completed attempt: initial and current both become the percentage
// and improvement is 0. Later attempts overwrite current and recompute
// improvement as ((current - initial) / initial) * 100, or 0 when the
// initial score was 0, so a first score of exactly 0 never produces a
// division by zero. All stored fields are rounded and sanitized.
func RecordAttempt(existing *model.ImprovementRecord, studentID int64, subject string, percentage float64) model.ImprovementRecord {
	percentage = Round2(percentage)

	if existing == nil {
		return model.ImprovementRecord{
			StudentID:             studentID,
			Subject:               subject,
			InitialScore:          percentage,
			CurrentScore:          percentage,
			ImprovementPercentage: 0,
			AttemptCount:          1,
			UpdatedAt:             time.Now(),
		}
	}

	rec := *existing
	rec.CurrentScore = percentage
	rec.AttemptCount++
	if rec.InitialScore > 0 {
		rec.ImprovementPercentage = Round2((rec.CurrentScore - rec.InitialScore) / rec.InitialScore * 100)
	} else {
		rec.ImprovementPercentage = 0
	}
	rec.UpdatedAt = time.Now()
	return rec
}
