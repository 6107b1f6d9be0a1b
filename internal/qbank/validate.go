package qbank

import (
	"github.com/rsharan/examgate/internal/model"
)

// ValidatePool enforces the structural invariants on a loaded pool:
// every multiple-choice record has text, exactly 4 distinct options, and an
// answer that is one of them; every descriptive record has text and an
// answer. The first violation encountered is returned as a ValidationError.
// There is no partial acceptance.
func ValidatePool(pool *model.QuestionPool) error {
	if pool.MultipleChoice == nil {
		return &ValidationError{Kind: model.KindMultipleChoice, Index: -1, Field: "multiple_choice", Reason: "list is missing"}
	}
	if pool.Descriptive == nil {
		return &ValidationError{Kind: model.KindDescriptive, Index: -1, Field: "descriptive", Reason: "list is missing"}
	}

	for i, q := range pool.MultipleChoice {
		if q.Text == "" {
			return &ValidationError{Kind: model.KindMultipleChoice, Index: i, Field: "question", Reason: "is empty"}
		}
		if len(q.Options) != 4 {
			return &ValidationError{Kind: model.KindMultipleChoice, Index: i, Field: "options", Reason: "must have exactly 4 entries"}
		}
		seen := make(map[string]bool, 4)
		for _, opt := range q.Options {
			if opt == "" {
				return &ValidationError{Kind: model.KindMultipleChoice, Index: i, Field: "options", Reason: "contains an empty entry"}
			}
			if seen[opt] {
				return &ValidationError{Kind: model.KindMultipleChoice, Index: i, Field: "options", Reason: "contains duplicate entries"}
			}
			seen[opt] = true
		}
		if q.Answer == "" {
			return &ValidationError{Kind: model.KindMultipleChoice, Index: i, Field: "answer", Reason: "is empty"}
		}
		if !seen[q.Answer] {
			return &ValidationError{Kind: model.KindMultipleChoice, Index: i, Field: "answer", Reason: "is not one of the options"}
		}
	}

	for i, q := range pool.Descriptive {
		if q.Text == "" {
			return &ValidationError{Kind: model.KindDescriptive, Index: i, Field: "question", Reason: "is empty"}
		}
		if q.Answer == "" {
			return &ValidationError{Kind: model.KindDescriptive, Index: i, Field: "answer", Reason: "is empty"}
		}
	}

	return nil
}
