package metrics

import "time"

// Summary is the aggregated view of all collected telemetry.
type Summary struct {
	UptimeHours  float64          `json:"uptime_hours"`
	Fallback     OpStats          `json:"fallback"`
	Loads        OpStats          `json:"loads"`
	Selections   OpStats          `json:"selections"`
	Cache        CacheSummary     `json:"cache"`
	ErrorsByType map[string]int64 `json:"errors_by_type"`
	ByStream     map[string]int64 `json:"by_stream"`
	BySubject    map[string]int64 `json:"by_subject"`
	DroppedKeys  int64            `json:"dropped_breakdown_keys"`
}

// OpStats aggregates one operation family.
type OpStats struct {
	Total    int64   `json:"total"`
	Failures int64   `json:"failures"`
	AvgMS    float64 `json:"avg_ms"`
	PerHour  float64 `json:"per_hour"`
}

// CacheSummary aggregates cache lookup outcomes.
type CacheSummary struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Expired int64   `json:"expired"`
	HitRate float64 `json:"hit_rate"`
}

// TrendBucket aggregates one category over a trailing window.
type TrendBucket struct {
	Total    int64   `json:"total"`
	Failures int64   `json:"failures"`
	AvgMS    float64 `json:"avg_ms,omitempty"`
}

// TrendReport is the windowed view returned by Trends.
type TrendReport struct {
	WindowHours int                    `json:"window_hours"`
	Categories  map[string]TrendBucket `json:"categories"`
}

// minUptime is the floor below which rate calculations return 0 instead of
// dividing by a near-zero uptime.
const minUptime = time.Second

// Summary returns the aggregated counters and rates.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	uptime := c.now().Sub(c.startedAt)
	uptimeHours := uptime.Hours()

	perHour := func(total int64) float64 {
		if uptime < minUptime {
			return 0
		}
		return float64(total) / uptimeHours
	}
	avgMS := func(d time.Duration, successes int64) float64 {
		if successes <= 0 {
			return 0
		}
		return float64(d.Microseconds()) / 1000 / float64(successes)
	}

	cacheTotal := c.cacheHits + c.cacheMisses + c.cacheExpired
	hitRate := 0.0
	if cacheTotal > 0 {
		hitRate = float64(c.cacheHits) / float64(cacheTotal)
	}

	errs := make(map[string]int64, len(c.errorsByType))
	for k, v := range c.errorsByType {
		errs[k] = v
	}
	byStream := make(map[string]int64, len(c.byStream))
	for k, v := range c.byStream {
		byStream[k] = v
	}
	bySubject := make(map[string]int64, len(c.bySubject))
	for k, v := range c.bySubject {
		bySubject[k] = v
	}

	return Summary{
		UptimeHours: uptimeHours,
		Fallback: OpStats{
			Total:    c.fallbackTotal,
			Failures: c.fallbackFailures,
			PerHour:  perHour(c.fallbackTotal),
		},
		Loads: OpStats{
			Total:    c.loadTotal,
			Failures: c.loadFailures,
			AvgMS:    avgMS(c.loadDuration, c.loadTotal-c.loadFailures),
			PerHour:  perHour(c.loadTotal),
		},
		Selections: OpStats{
			Total:    c.selectionTotal,
			Failures: c.selectionFailures,
			AvgMS:    avgMS(c.selectionDuration, c.selectionTotal-c.selectionFailures),
			PerHour:  perHour(c.selectionTotal),
		},
		Cache: CacheSummary{
			Hits:    c.cacheHits,
			Misses:  c.cacheMisses,
			Expired: c.cacheExpired,
			HitRate: hitRate,
		},
		ErrorsByType: errs,
		ByStream:     byStream,
		BySubject:    bySubject,
		DroppedKeys:  c.droppedKeys,
	}
}

// Trends aggregates every category over the trailing window of the given
// length in hours (minimum 1).
func (c *Collector) Trends(hours int) TrendReport {
	if hours < 1 {
		hours = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-time.Duration(hours) * time.Hour)
	report := TrendReport{
		WindowHours: hours,
		Categories:  make(map[string]TrendBucket, len(c.history)),
	}

	for category, events := range c.history {
		var b TrendBucket
		var durTotal float64
		var durCount int64
		for _, ev := range events {
			if ev.At.Before(cutoff) {
				continue
			}
			b.Total++
			if ev.Outcome == "failure" {
				b.Failures++
			}
			if ev.DurationMS > 0 {
				durTotal += ev.DurationMS
				durCount++
			}
		}
		if durCount > 0 {
			b.AvgMS = durTotal / float64(durCount)
		}
		report.Categories[category] = b
	}
	return report
}
