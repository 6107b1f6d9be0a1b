package qbank

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rsharan/examgate/internal/model"
)

// Sampler selects questions from a pool without replacement using a partial
// Fisher-Yates shuffle: each permutation of the selected size is equally
// likely, in O(count) swaps. A mutex guards the rand source so concurrent
// exam starts can share one Sampler.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSampler creates a sampler seeded from the global source.
func NewSampler() *Sampler {
	return &Sampler{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSamplerWithSeed creates a deterministically seeded sampler for tests.
func NewSamplerWithSeed(seed uint64) *Sampler {
	return &Sampler{rnd: rand.New(rand.NewPCG(seed, seed))}
}

// Sample selects mcqCount multiple-choice and descCount descriptive
// questions from the pool. Pools below the exam quotas (8 MCQ, 2
// descriptive) are rejected with InsufficientQuestionsError naming the short
// kind; the insufficiency check runs against those quotas, not the requested
// counts, so a requested count at or above the available size falls through
// to a full shuffle of the list instead of an error.
func (s *Sampler) Sample(pool *model.QuestionPool, mcqCount, descCount int) (*model.SelectionResult, error) {
	if len(pool.MultipleChoice) < model.ExamMCQCount {
		return nil, &InsufficientQuestionsError{
			Kind:      model.KindMultipleChoice,
			Required:  model.ExamMCQCount,
			Available: len(pool.MultipleChoice),
		}
	}
	if len(pool.Descriptive) < model.ExamDescriptiveCount {
		return nil, &InsufficientQuestionsError{
			Kind:      model.KindDescriptive,
			Required:  model.ExamDescriptiveCount,
			Available: len(pool.Descriptive),
		}
	}

	s.mu.Lock()
	mcq := s.pick(pool.MultipleChoice, mcqCount)
	desc := s.pick(pool.Descriptive, descCount)
	s.mu.Unlock()

	return &model.SelectionResult{
		Stream:         pool.Stream,
		Subject:        pool.Subject,
		MultipleChoice: mcq,
		Descriptive:    desc,
		TotalAvailable: pool.Total(),
		SelectedAt:     time.Now(),
	}, nil
}

// pick returns count elements drawn without replacement. When count covers
// the whole list it returns a full shuffle instead.
func (s *Sampler) pick(src []model.QuestionRecord, count int) []model.QuestionRecord {
	out := slices.Clone(src)
	if count >= len(out) {
		s.rnd.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
		return out
	}

	picked := make([]model.QuestionRecord, 0, count)
	n := len(out)
	for range count {
		j := s.rnd.IntN(n)
		out[j], out[n-1] = out[n-1], out[j]
		n--
		picked = append(picked, out[n])
	}
	return picked
}
