package model

import (
	"context"
	"time"
)

// Exam composition constants. Every exam is 8 multiple-choice questions worth
// 1 mark each plus 2 descriptive questions worth up to 6 marks each.
const (
	ExamMCQCount         = 8
	ExamDescriptiveCount = 2
	DescriptiveMaxMarks  = 6.0
	ExamTotalMarks       = 20.0
)

// QuestionKind distinguishes the two supported question types.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindDescriptive    QuestionKind = "descriptive"
)

// QuestionRecord is one question from the fallback bank. Multiple-choice
// records carry exactly 4 options and an answer equal to one of them;
// descriptive records carry a free-text model answer. Records are immutable
// after load.
type QuestionRecord struct {
	Kind    QuestionKind `json:"type"`
	Text    string       `json:"question"`
	Options []string     `json:"options,omitempty"`
	Answer  string       `json:"answer"`
}

// QuestionPool holds the validated questions for one (stream, subject) pair,
// partitioned by kind.
type QuestionPool struct {
	Stream         string
	Subject        string
	MultipleChoice []QuestionRecord
	Descriptive    []QuestionRecord
}

// Total returns the number of questions across both partitions.
func (p *QuestionPool) Total() int {
	return len(p.MultipleChoice) + len(p.Descriptive)
}

// SelectionResult is the output of one sampling operation: the selected
// questions plus selection metadata. It is consumed immediately by exam
// creation and never stored.
type SelectionResult struct {
	Stream         string           `json:"stream"`
	Subject        string           `json:"subject"`
	MultipleChoice []QuestionRecord `json:"multiple_choice"`
	Descriptive    []QuestionRecord `json:"descriptive"`
	TotalAvailable int              `json:"total_available"`
	SelectedAt     time.Time        `json:"selected_at"`
}

// SelectedCount returns how many questions were selected.
func (r *SelectionResult) SelectedCount() int {
	return len(r.MultipleChoice) + len(r.Descriptive)
}

// QuestionSource tags where an exam's questions came from, so callers can
// distinguish "used AI" from "used fallback" without inspecting errors.
type QuestionSource string

const (
	SourceAI       QuestionSource = "ai"
	SourceFallback QuestionSource = "fallback"
)

// ExamStatus is the lifecycle state of an exam attempt. Attempts are created
// in_progress (questions are frozen at creation, so there is no earlier
// state) and move to completed on submission.
type ExamStatus string

const (
	ExamInProgress ExamStatus = "in_progress"
	ExamCompleted  ExamStatus = "completed"
)

// Exam is one student's attempt at one subject's exam.
type Exam struct {
	ID               int64          `json:"id"`
	StudentID        int64          `json:"student_id"`
	Stream           string         `json:"stream"`
	Subject          string         `json:"subject"`
	Source           QuestionSource `json:"source"`
	Status           ExamStatus     `json:"status"`
	MCQScore         int            `json:"mcq_score"`
	DescriptiveScore float64        `json:"descriptive_score"`
	TotalScore       float64        `json:"total_score"`
	Percentage       float64        `json:"percentage"`
	TabSwitchCount   int            `json:"tab_switch_count"`
	AutoSubmitted    bool           `json:"auto_submitted"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// ExamQuestion is one question as frozen into an exam at start time.
// CorrectAnswer is never serialized to clients.
type ExamQuestion struct {
	ID            int64        `json:"id"`
	ExamID        int64        `json:"exam_id"`
	Kind          QuestionKind `json:"question_type"`
	Text          string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"-"`
	StudentAnswer string       `json:"student_answer,omitempty"`
	MarksObtained float64      `json:"marks_obtained"`
}

// PerformanceCategory is the resource tier derived from an exam percentage.
type PerformanceCategory string

const (
	CategoryBelow40 PerformanceCategory = "below_40"
	Category40To80  PerformanceCategory = "40_to_80"
	CategoryAbove80 PerformanceCategory = "above_80"
)

// ScoreReport is the outcome of scoring one submission.
type ScoreReport struct {
	MCQScore         int                 `json:"mcq_score"`
	DescriptiveScore float64             `json:"descriptive_score"`
	TotalScore       float64             `json:"total_score"`
	Percentage       float64             `json:"percentage"`
	Category         PerformanceCategory `json:"performance_category"`
	AutoSubmitted    bool                `json:"auto_submitted"`
}

// ImprovementRecord tracks a student's score trajectory for one subject.
// InitialScore is set once from the first completed attempt; CurrentScore is
// overwritten on every later attempt.
type ImprovementRecord struct {
	ID                    int64     `json:"id"`
	StudentID             int64     `json:"student_id"`
	Subject               string    `json:"subject"`
	InitialScore          float64   `json:"initial_score"`
	CurrentScore          float64   `json:"current_score"`
	ImprovementPercentage float64   `json:"improvement_percentage"`
	AttemptCount          int       `json:"attempt_count"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// LearningResource is one recommended resource for a (stream, subject, tier).
type LearningResource struct {
	ID          int64               `json:"id"`
	Stream      string              `json:"stream"`
	Subject     string              `json:"subject_name"`
	Category    PerformanceCategory `json:"performance_category"`
	Title       string              `json:"title"`
	URL         string              `json:"url"`
	Description string              `json:"description,omitempty"`
}

// FallbackStatus reports the health of the fallback question bank.
type FallbackStatus struct {
	Healthy          bool                `json:"healthy"`
	Detail           string              `json:"detail,omitempty"`
	CacheStats       CacheStats          `json:"cache_stats"`
	SubjectsByStream map[string][]string `json:"available_subjects_by_stream"`
}

// CacheStats summarizes selection cache state and counters.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Expired int64 `json:"expired"`
}

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user. Students carry the engineering stream they
// belong to; admins leave it empty.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Stream       string    `json:"stream,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
