package qbank

import (
	"errors"
	"testing"
	"time"

	"github.com/rsharan/examgate/internal/metrics"
	"github.com/rsharan/examgate/internal/model"
)

func newTestService(t *testing.T, dir string) (*Service, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector()
	svc := NewService(NewReader(dir), NewCache(time.Minute), NewSamplerWithSeed(99), collector)
	return svc, collector
}

func TestRandomQuestions(t *testing.T) {
	svc, collector := newTestService(t, newTestBankDir(t))

	result, err := svc.RandomQuestions("cse", "Operating Systems")
	if err != nil {
		t.Fatalf("RandomQuestions: %v", err)
	}
	if result.SelectedCount() != 10 {
		t.Errorf("expected 10 selected, got %d", result.SelectedCount())
	}
	if result.TotalAvailable != 13 {
		t.Errorf("expected 13 available, got %d", result.TotalAvailable)
	}

	summary := collector.Summary()
	if summary.Fallback.Total != 1 || summary.Fallback.Failures != 0 {
		t.Errorf("unexpected fallback stats: %+v", summary.Fallback)
	}
	if summary.Loads.Total != 1 {
		t.Errorf("expected 1 load, got %d", summary.Loads.Total)
	}
	if summary.Selections.Total != 1 {
		t.Errorf("expected 1 selection, got %d", summary.Selections.Total)
	}
	if summary.Cache.Misses != 1 {
		t.Errorf("expected 1 cache miss, got %d", summary.Cache.Misses)
	}
}

func TestRandomQuestionsUsesCacheOnSecondCall(t *testing.T) {
	svc, collector := newTestService(t, newTestBankDir(t))

	if _, err := svc.RandomQuestions("cse", "Operating Systems"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.RandomQuestions("cse", "Operating Systems"); err != nil {
		t.Fatalf("second call: %v", err)
	}

	summary := collector.Summary()
	if summary.Loads.Total != 1 {
		t.Errorf("second call should not reload, loads=%d", summary.Loads.Total)
	}
	if summary.Cache.Hits != 1 || summary.Cache.Misses != 1 {
		t.Errorf("unexpected cache counters: %+v", summary.Cache)
	}
	if summary.Selections.Total != 2 {
		t.Errorf("both calls should sample, selections=%d", summary.Selections.Total)
	}
}

func TestRandomQuestionsRecordsErrors(t *testing.T) {
	svc, collector := newTestService(t, newTestBankDir(t))

	_, err := svc.RandomQuestions("ece", "Circuits")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	summary := collector.Summary()
	if summary.Fallback.Failures != 1 {
		t.Errorf("expected 1 fallback failure, got %d", summary.Fallback.Failures)
	}
	if summary.ErrorsByType["not_found"] != 1 {
		t.Errorf("expected not_found error recorded, got %v", summary.ErrorsByType)
	}
}

func TestRandomQuestionsRejectsShortPool(t *testing.T) {
	dir := t.TempDir()
	writeBankFile(t, dir, "cse", map[string][]model.QuestionRecord{
		"Operating Systems": append(makeMCQ(5), makeDescriptive(2)...),
	})
	svc, collector := newTestService(t, dir)

	_, err := svc.RandomQuestions("cse", "Operating Systems")
	var ie *InsufficientQuestionsError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InsufficientQuestionsError, got %v", err)
	}
	if collector.Summary().ErrorsByType["insufficient_questions"] != 1 {
		t.Errorf("expected insufficient_questions error recorded, got %v", collector.Summary().ErrorsByType)
	}
}

func TestStatus(t *testing.T) {
	svc, _ := newTestService(t, newTestBankDir(t))

	status := svc.Status()
	if !status.Healthy {
		t.Errorf("expected healthy status, got %+v", status)
	}
	if subjects := status.SubjectsByStream["cse"]; len(subjects) != 1 || subjects[0] != "Operating Systems" {
		t.Errorf("unexpected subjects: %v", status.SubjectsByStream)
	}
}

func TestStatusDegraded(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())

	status := svc.Status()
	if status.Healthy {
		t.Error("expected unhealthy status for empty bank directory")
	}
	if status.Detail == "" {
		t.Error("expected a detail message")
	}
}

func TestValidateBank(t *testing.T) {
	svc, _ := newTestService(t, newTestBankDir(t))
	if problems := svc.ValidateBank(); len(problems) != 0 {
		t.Fatalf("expected clean bank, got %v", problems)
	}
}

func TestValidateBankReportsProblems(t *testing.T) {
	dir := t.TempDir()
	// One good pool, one below quota, one structurally invalid.
	writeBankFile(t, dir, "cse", map[string][]model.QuestionRecord{
		"Operating Systems": append(makeMCQ(10), makeDescriptive(3)...),
		"Databases":         append(makeMCQ(4), makeDescriptive(2)...),
	})
	bad := makeMCQ(8)
	bad[0].Answer = "not an option"
	writeBankFile(t, dir, "ece", map[string][]model.QuestionRecord{
		"Circuits": append(bad, makeDescriptive(2)...),
	})
	svc, _ := newTestService(t, dir)

	problems := svc.ValidateBank()
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d: %v", len(problems), problems)
	}
}
