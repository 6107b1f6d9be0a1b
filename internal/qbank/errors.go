package qbank

import (
	"fmt"

	"github.com/rsharan/examgate/internal/model"
)

// NotFoundError reports a missing bank document, stream, or subject key.
// Non-retryable; callers propagate it to the exam-start flow.
type NotFoundError struct {
	Path    string
	Stream  string
	Subject string
}

func (e *NotFoundError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("no questions for subject %q in stream %q (%s)", e.Subject, e.Stream, e.Path)
	}
	return fmt.Sprintf("no question bank for stream %q (%s)", e.Stream, e.Path)
}

// FormatError reports a bank document that could not be parsed.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed question bank %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ValidationError reports the first structural violation found in loaded
// question content, naming the offending index and field.
type ValidationError struct {
	Kind   model.QuestionKind
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s question at index %d: field %q %s", e.Kind, e.Index, e.Field, e.Reason)
}

// InsufficientQuestionsError reports a pool too small to fill the exam quota
// for one question kind.
type InsufficientQuestionsError struct {
	Kind      model.QuestionKind
	Required  int
	Available int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient %s questions: need %d, have %d", e.Kind, e.Required, e.Available)
}
