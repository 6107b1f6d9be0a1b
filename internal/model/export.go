package model

import "time"

// ResultsExport is the top-level JSON structure for exam result export.
type ResultsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Attempts   []AttemptExport `json:"attempts"`
}

// AttemptExport holds one student's completed exam attempt for export.
type AttemptExport struct {
	ExamID           int64            `json:"exam_id"`
	Username         string           `json:"username"`
	DisplayName      string           `json:"display_name"`
	Stream           string           `json:"stream"`
	Subject          string           `json:"subject"`
	Source           QuestionSource   `json:"source"`
	Status           ExamStatus       `json:"status"`
	MCQScore         int              `json:"mcq_score"`
	DescriptiveScore float64          `json:"descriptive_score"`
	TotalScore       float64          `json:"total_score"`
	Percentage       float64          `json:"percentage"`
	AutoSubmitted    bool             `json:"auto_submitted"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	Questions        []QuestionExport `json:"questions"`
}

// QuestionExport holds per-question data for export, including the correct
// answer (exports are an admin-side artifact).
type QuestionExport struct {
	Kind          QuestionKind `json:"question_type"`
	Text          string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	StudentAnswer string       `json:"student_answer"`
	MarksObtained float64      `json:"marks_obtained"`
}
