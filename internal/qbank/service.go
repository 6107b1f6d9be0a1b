package qbank

import (
	"errors"
	"log/slog"
	"time"

	"github.com/rsharan/examgate/internal/metrics"
	"github.com/rsharan/examgate/internal/model"
)

// Service is the fallback question source: it loads, validates, caches, and
// samples question pools, recording every operation to the metrics
// collector. It is invoked when AI question generation has already failed,
// so its own failures are terminal for the exam-start request.
type Service struct {
	reader    *Reader
	cache     *Cache
	sampler   *Sampler
	collector *metrics.Collector
}

// NewService wires the fallback components together.
func NewService(reader *Reader, cache *Cache, sampler *Sampler, collector *metrics.Collector) *Service {
	return &Service{reader: reader, cache: cache, sampler: sampler, collector: collector}
}

// RandomQuestions produces a substitute question set for one (stream,
// subject) pair: 8 multiple-choice and 2 descriptive questions sampled
// without replacement from the validated pool.
func (s *Service) RandomQuestions(stream, subject string) (*model.SelectionResult, error) {
	start := time.Now()
	result, err := s.randomQuestions(stream, subject)
	s.collector.RecordFallbackActivation(stream, subject, time.Since(start), err == nil)
	if err != nil {
		s.collector.RecordError(errorType(err), "random_questions")
		slog.Error("fallback question selection failed",
			"stream", stream, "subject", subject, "error", err)
		return nil, err
	}
	slog.Info("fallback questions selected",
		"stream", stream, "subject", subject,
		"selected", result.SelectedCount(), "available", result.TotalAvailable)
	return result, nil
}

func (s *Service) randomQuestions(stream, subject string) (*model.SelectionResult, error) {
	pool, outcome := s.cache.Get(stream, subject)
	s.collector.RecordCacheOp(stream, subject, string(outcome))

	if pool == nil {
		loadStart := time.Now()
		loaded, err := s.reader.LoadPool(stream, subject)
		if err != nil {
			s.collector.RecordLoad(stream, subject, time.Since(loadStart), 0, false)
			return nil, err
		}
		if err := ValidatePool(loaded); err != nil {
			s.collector.RecordLoad(stream, subject, time.Since(loadStart), 0, false)
			return nil, err
		}
		s.collector.RecordLoad(stream, subject, time.Since(loadStart), loaded.Total(), true)
		s.cache.Put(stream, subject, loaded)
		pool = loaded
	}

	selStart := time.Now()
	result, err := s.sampler.Sample(pool, model.ExamMCQCount, model.ExamDescriptiveCount)
	s.collector.RecordSelection(stream, subject, time.Since(selStart), err == nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Status reports fallback health, cache counters, and the subjects every
// stream document offers.
func (s *Service) Status() model.FallbackStatus {
	degraded, detail := s.reader.Degraded()
	return model.FallbackStatus{
		Healthy:          !degraded,
		Detail:           detail,
		CacheStats:       s.cache.Stats(),
		SubjectsByStream: s.reader.SubjectsByStream(),
	}
}

// SweepExpired evicts stale cache entries and returns the eviction count.
func (s *Service) SweepExpired() int {
	removed := s.cache.SweepExpired()
	if removed > 0 {
		slog.Info("swept expired question pools", "removed", removed)
	}
	return removed
}

// ValidateBank re-validates the bank directory and every pool in it,
// returning one error per problem found. Used by the validate-bank command.
func (s *Service) ValidateBank() []error {
	var problems []error
	if ok, detail := s.reader.ValidateDirectory(); !ok {
		return []error{errors.New(detail)}
	}
	for stream, subjects := range s.reader.SubjectsByStream() {
		for _, subject := range subjects {
			pool, err := s.reader.LoadPool(stream, subject)
			if err != nil {
				problems = append(problems, err)
				continue
			}
			if err := ValidatePool(pool); err != nil {
				problems = append(problems, err)
				continue
			}
			if _, err := s.sampler.Sample(pool, model.ExamMCQCount, model.ExamDescriptiveCount); err != nil {
				problems = append(problems, err)
			}
		}
	}
	return problems
}

// errorType maps the error taxonomy to metric labels.
func errorType(err error) string {
	var nf *NotFoundError
	var fe *FormatError
	var ve *ValidationError
	var ie *InsufficientQuestionsError
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &fe):
		return "format"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ie):
		return "insufficient_questions"
	default:
		return "internal"
	}
}
