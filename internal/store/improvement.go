package store

import (
	"database/sql"

	"github.com/rsharan/examgate/internal/model"
)

// GetImprovement returns the improvement record for a (student, subject)
// pair, or nil if the student has no completed attempts for the subject.
func (s *Store) GetImprovement(studentID int64, subject string) (*model.ImprovementRecord, error) {
	var rec model.ImprovementRecord
	err := s.db.QueryRow(
		`SELECT id, student_id, subject, initial_score, current_score, improvement_percentage, attempt_count, updated_at
		 FROM improvement_tracking WHERE student_id = ? AND subject = ?`,
		studentID, subject,
	).Scan(&rec.ID, &rec.StudentID, &rec.Subject, &rec.InitialScore, &rec.CurrentScore,
		&rec.ImprovementPercentage, &rec.AttemptCount, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListImprovementsForStudent returns all of a student's improvement records.
func (s *Store) ListImprovementsForStudent(studentID int64) ([]model.ImprovementRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, student_id, subject, initial_score, current_score, improvement_percentage, attempt_count, updated_at
		 FROM improvement_tracking WHERE student_id = ? ORDER BY subject`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.ImprovementRecord
	for rows.Next() {
		var rec model.ImprovementRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Subject, &rec.InitialScore, &rec.CurrentScore,
			&rec.ImprovementPercentage, &rec.AttemptCount, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
