package metrics

import (
	"fmt"
	"testing"
	"time"
)

// newTestCollector returns a collector with a controllable clock.
func newTestCollector() (*Collector, *time.Time) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := &Collector{now: func() time.Time { return now }}
	c.resetLocked()
	return c, &now
}

func TestSummaryCounters(t *testing.T) {
	c, now := newTestCollector()

	c.RecordFallbackActivation("cse", "Databases", 10*time.Millisecond, true)
	c.RecordFallbackActivation("cse", "Networks", 10*time.Millisecond, false)
	c.RecordLoad("cse", "Databases", 20*time.Millisecond, 13, true)
	c.RecordLoad("cse", "Networks", 5*time.Millisecond, 0, false)
	c.RecordSelection("cse", "Databases", 2*time.Millisecond, true)
	c.RecordCacheOp("cse", "Databases", "miss")
	c.RecordCacheOp("cse", "Databases", "hit")
	c.RecordCacheOp("cse", "Databases", "hit")
	c.RecordCacheOp("cse", "Databases", "expired")
	c.RecordError("not_found", "random_questions")

	*now = now.Add(2 * time.Hour)
	s := c.Summary()

	if s.Fallback.Total != 2 || s.Fallback.Failures != 1 {
		t.Errorf("fallback: %+v", s.Fallback)
	}
	if s.Fallback.PerHour != 1 {
		t.Errorf("fallback per hour = %v, want 1", s.Fallback.PerHour)
	}
	if s.Loads.Total != 2 || s.Loads.Failures != 1 {
		t.Errorf("loads: %+v", s.Loads)
	}
	// Average over successful loads only: 20ms / 1.
	if s.Loads.AvgMS != 20 {
		t.Errorf("load avg = %v, want 20", s.Loads.AvgMS)
	}
	if s.Selections.Total != 1 || s.Selections.AvgMS != 2 {
		t.Errorf("selections: %+v", s.Selections)
	}
	if s.Cache.Hits != 2 || s.Cache.Misses != 1 || s.Cache.Expired != 1 {
		t.Errorf("cache: %+v", s.Cache)
	}
	if s.Cache.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", s.Cache.HitRate)
	}
	if s.ErrorsByType["not_found"] != 1 {
		t.Errorf("errors: %v", s.ErrorsByType)
	}
	if s.ByStream["cse"] != 2 {
		t.Errorf("by stream: %v", s.ByStream)
	}
	if s.BySubject["Databases"] != 1 || s.BySubject["Networks"] != 1 {
		t.Errorf("by subject: %v", s.BySubject)
	}
	if s.UptimeHours != 2 {
		t.Errorf("uptime = %v, want 2", s.UptimeHours)
	}
}

func TestSummaryRatesGuardAgainstZeroUptime(t *testing.T) {
	c, _ := newTestCollector()
	c.RecordFallbackActivation("cse", "Databases", time.Millisecond, true)

	s := c.Summary()
	if s.Fallback.PerHour != 0 {
		t.Errorf("per-hour rate with zero uptime should be 0, got %v", s.Fallback.PerHour)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	c, _ := newTestCollector()

	for i := 0; i < historyCap+50; i++ {
		c.RecordCacheOp("cse", fmt.Sprintf("subject-%d", i), "hit")
	}

	events, err := c.Detailed(CategoryCache)
	if err != nil {
		t.Fatalf("Detailed: %v", err)
	}
	if len(events) != historyCap {
		t.Fatalf("history length = %d, want %d", len(events), historyCap)
	}
	// The oldest entries were dropped; the newest is last.
	if events[0].Subject != "subject-50" {
		t.Errorf("oldest retained = %q, want subject-50", events[0].Subject)
	}
	if events[len(events)-1].Subject != fmt.Sprintf("subject-%d", historyCap+49) {
		t.Errorf("newest = %q", events[len(events)-1].Subject)
	}
}

func TestBreakdownMapsAreBounded(t *testing.T) {
	c, _ := newTestCollector()

	for i := 0; i < breakdownCap+10; i++ {
		c.RecordFallbackActivation("cse", fmt.Sprintf("subject-%d", i), time.Millisecond, true)
	}

	s := c.Summary()
	if len(s.BySubject) != breakdownCap {
		t.Errorf("subject breakdown size = %d, want %d", len(s.BySubject), breakdownCap)
	}
	if s.DroppedKeys != 10 {
		t.Errorf("dropped keys = %d, want 10", s.DroppedKeys)
	}
	// Existing keys still count past the cap.
	c.RecordFallbackActivation("cse", "subject-0", time.Millisecond, true)
	if got := c.Summary().BySubject["subject-0"]; got != 2 {
		t.Errorf("existing key count = %d, want 2", got)
	}
}

func TestDetailedUnknownCategory(t *testing.T) {
	c, _ := newTestCollector()
	if _, err := c.Detailed("bogus"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestDetailedReturnsCopy(t *testing.T) {
	c, _ := newTestCollector()
	c.RecordError("format", "random_questions")

	events, err := c.Detailed(CategoryError)
	if err != nil {
		t.Fatalf("Detailed: %v", err)
	}
	events[0].Outcome = "mutated"

	again, _ := c.Detailed(CategoryError)
	if again[0].Outcome != "format" {
		t.Error("Detailed should return a copy, not the backing slice")
	}
}

func TestTrendsWindowsByTime(t *testing.T) {
	c, now := newTestCollector()

	c.RecordFallbackActivation("cse", "Databases", 10*time.Millisecond, true)
	*now = now.Add(3 * time.Hour)
	c.RecordFallbackActivation("cse", "Databases", 30*time.Millisecond, false)
	*now = now.Add(30 * time.Minute)

	report := c.Trends(1)
	if report.WindowHours != 1 {
		t.Errorf("window = %d, want 1", report.WindowHours)
	}
	bucket := report.Categories[CategoryFallback]
	if bucket.Total != 1 || bucket.Failures != 1 {
		t.Errorf("1h bucket: %+v", bucket)
	}
	if bucket.AvgMS != 30 {
		t.Errorf("1h avg = %v, want 30", bucket.AvgMS)
	}

	wide := c.Trends(24).Categories[CategoryFallback]
	if wide.Total != 2 || wide.Failures != 1 {
		t.Errorf("24h bucket: %+v", wide)
	}
}

func TestTrendsClampsWindow(t *testing.T) {
	c, _ := newTestCollector()
	if report := c.Trends(0); report.WindowHours != 1 {
		t.Errorf("window 0 should clamp to 1, got %d", report.WindowHours)
	}
	if report := c.Trends(-5); report.WindowHours != 1 {
		t.Errorf("window -5 should clamp to 1, got %d", report.WindowHours)
	}
}

func TestReset(t *testing.T) {
	c, now := newTestCollector()

	c.RecordFallbackActivation("cse", "Databases", time.Millisecond, true)
	c.RecordError("format", "random_questions")
	*now = now.Add(time.Hour)
	c.Reset()

	s := c.Summary()
	if s.Fallback.Total != 0 || len(s.ErrorsByType) != 0 || s.UptimeHours != 0 {
		t.Errorf("reset did not clear state: %+v", s)
	}
	events, err := c.Detailed(CategoryFallback)
	if err != nil {
		t.Fatalf("Detailed after reset: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("history survived reset: %d events", len(events))
	}
}
