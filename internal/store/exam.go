package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/scoring"
)

func marshalOptions(options []string) (string, error) {
	if len(options) == 0 {
		return "", nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

func unmarshalOptions(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return options, nil
}

// CreateExam creates an in-progress exam for a student and freezes the
// selected questions into it, atomically.
func (s *Store) CreateExam(studentID int64, source model.QuestionSource, sel *model.SelectionResult) (*model.Exam, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(
		`INSERT INTO exams (student_id, stream, subject, source, status, started_at)
		 VALUES (?, ?, ?, ?, 'in_progress', ?)`,
		studentID, sel.Stream, sel.Subject, source, now,
	)
	if err != nil {
		return nil, err
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	insert := func(q model.QuestionRecord) error {
		options, err := marshalOptions(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO exam_questions (exam_id, question_type, question, options, correct_answer)
			 VALUES (?, ?, ?, ?, ?)`,
			examID, q.Kind, q.Text, options, q.Answer,
		)
		return err
	}
	for _, q := range sel.MultipleChoice {
		if err := insert(q); err != nil {
			return nil, err
		}
	}
	for _, q := range sel.Descriptive {
		if err := insert(q); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &model.Exam{
		ID:        examID,
		StudentID: studentID,
		Stream:    sel.Stream,
		Subject:   sel.Subject,
		Source:    source,
		Status:    model.ExamInProgress,
		StartedAt: now,
	}, nil
}

const examColumns = `id, student_id, stream, subject, source, status, mcq_score,
	descriptive_score, total_score, percentage, tab_switch_count, auto_submitted,
	started_at, completed_at`

func scanExam(row interface{ Scan(...any) error }) (model.Exam, error) {
	var e model.Exam
	err := row.Scan(&e.ID, &e.StudentID, &e.Stream, &e.Subject, &e.Source, &e.Status,
		&e.MCQScore, &e.DescriptiveScore, &e.TotalScore, &e.Percentage,
		&e.TabSwitchCount, &e.AutoSubmitted, &e.StartedAt, &e.CompletedAt)
	return e, err
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	return scanExam(s.db.QueryRow(`SELECT `+examColumns+` FROM exams WHERE id = ?`, id))
}

// GetExamQuestions returns all questions of an exam in insertion order.
func (s *Store) GetExamQuestions(examID int64) ([]model.ExamQuestion, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, question_type, question, options, correct_answer, student_answer, marks_obtained
		 FROM exam_questions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.ExamQuestion
	for rows.Next() {
		var q model.ExamQuestion
		var options string
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Kind, &q.Text, &options,
			&q.CorrectAnswer, &q.StudentAnswer, &q.MarksObtained); err != nil {
			return nil, err
		}
		if q.Options, err = unmarshalOptions(options); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CompleteExam finalizes a submission in one transaction: exam scores and
// status, per-question answers and marks, and the improvement record. A
// crash mid-submission leaves no partial score state visible. Completing an
// already completed exam returns ErrAlreadySubmitted.
func (s *Store) CompleteExam(examID int64, report *model.ScoreReport, perQuestion []scoring.QuestionScore, tabSwitchCount int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var studentID int64
	var subject string
	var status model.ExamStatus
	err = tx.QueryRow(`SELECT student_id, subject, status FROM exams WHERE id = ?`, examID).
		Scan(&studentID, &subject, &status)
	if err != nil {
		return err
	}
	if status == model.ExamCompleted {
		return ErrAlreadySubmitted
	}

	now := time.Now()
	_, err = tx.Exec(
		`UPDATE exams SET status = 'completed', mcq_score = ?, descriptive_score = ?,
			total_score = ?, percentage = ?, tab_switch_count = ?, auto_submitted = ?,
			completed_at = ?
		 WHERE id = ?`,
		report.MCQScore, report.DescriptiveScore, report.TotalScore, report.Percentage,
		tabSwitchCount, report.AutoSubmitted, now, examID,
	)
	if err != nil {
		return err
	}

	for _, qs := range perQuestion {
		_, err = tx.Exec(
			`UPDATE exam_questions SET student_answer = ?, marks_obtained = ? WHERE id = ? AND exam_id = ?`,
			qs.Answer, qs.Marks, qs.QuestionID, examID,
		)
		if err != nil {
			return err
		}
	}

	if err := upsertImprovementTx(tx, studentID, subject, report.Percentage); err != nil {
		return err
	}

	return tx.Commit()
}

func upsertImprovementTx(tx *sql.Tx, studentID int64, subject string, percentage float64) error {
	var existing model.ImprovementRecord
	err := tx.QueryRow(
		`SELECT id, student_id, subject, initial_score, current_score, improvement_percentage, attempt_count, updated_at
		 FROM improvement_tracking WHERE student_id = ? AND subject = ?`,
		studentID, subject,
	).Scan(&existing.ID, &existing.StudentID, &existing.Subject, &existing.InitialScore,
		&existing.CurrentScore, &existing.ImprovementPercentage, &existing.AttemptCount, &existing.UpdatedAt)

	var prior *model.ImprovementRecord
	switch {
	case err == sql.ErrNoRows:
		prior = nil
	case err != nil:
		return err
	default:
		prior = &existing
	}

	rec := scoring.RecordAttempt(prior, studentID, subject, percentage)
	if prior == nil {
		_, err = tx.Exec(
			`INSERT INTO improvement_tracking (student_id, subject, initial_score, current_score, improvement_percentage, attempt_count, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.StudentID, rec.Subject, rec.InitialScore, rec.CurrentScore,
			rec.ImprovementPercentage, rec.AttemptCount, rec.UpdatedAt,
		)
		return err
	}
	_, err = tx.Exec(
		`UPDATE improvement_tracking SET current_score = ?, improvement_percentage = ?, attempt_count = ?, updated_at = ?
		 WHERE id = ?`,
		rec.CurrentScore, rec.ImprovementPercentage, rec.AttemptCount, rec.UpdatedAt, rec.ID,
	)
	return err
}

// ListExamsForStudent returns a student's exams, newest first.
func (s *Store) ListExamsForStudent(studentID int64) ([]model.Exam, error) {
	rows, err := s.db.Query(
		`SELECT `+examColumns+` FROM exams WHERE student_id = ? ORDER BY id DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT ` + examColumns + ` FROM exams ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// DeleteExam removes an exam and its questions. If no completed attempts
// remain for the student/subject pair, the improvement record goes with it.
func (s *Store) DeleteExam(examID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var studentID int64
	var subject string
	err = tx.QueryRow(`SELECT student_id, subject FROM exams WHERE id = ?`, examID).
		Scan(&studentID, &subject)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM exam_questions WHERE exam_id = ?`, examID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM exams WHERE id = ?`, examID); err != nil {
		return err
	}

	var remaining int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM exams WHERE student_id = ? AND subject = ? AND status = 'completed'`,
		studentID, subject,
	).Scan(&remaining)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if _, err := tx.Exec(
			`DELETE FROM improvement_tracking WHERE student_id = ? AND subject = ?`,
			studentID, subject,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
