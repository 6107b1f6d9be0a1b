// Package metrics collects counters, timings, and rates for the fallback
// question bank: activations, load and selection performance, cache
// hit/miss/expired outcomes, and errors by type and operation. State is
// process-wide and resets on restart or an explicit operator Reset.
package metrics

import (
	"fmt"
	"sync"
	"time"
)

// History categories accepted by Detailed.
const (
	CategoryFallback  = "fallback"
	CategoryLoad      = "load"
	CategorySelection = "selection"
	CategoryCache     = "cache"
	CategoryError     = "error"
)

// historyCap bounds every per-category history; the oldest entry is dropped
// first once the cap is reached.
const historyCap = 1000

// breakdownCap bounds the per-stream and per-subject breakdown maps. The
// source design grew these without bound for every distinct key; new keys
// beyond the cap are dropped and counted instead.
const breakdownCap = 256

// Event is one entry in a category history.
type Event struct {
	At         time.Time `json:"at"`
	Stream     string    `json:"stream,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	DurationMS float64   `json:"duration_ms,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Count      int       `json:"count,omitempty"`
}

// Collector aggregates fallback telemetry. All methods are safe for
// concurrent use.
type Collector struct {
	mu        sync.Mutex
	startedAt time.Time

	fallbackTotal    int64
	fallbackFailures int64

	loadTotal    int64
	loadFailures int64
	loadDuration time.Duration

	selectionTotal    int64
	selectionFailures int64
	selectionDuration time.Duration

	cacheHits    int64
	cacheMisses  int64
	cacheExpired int64

	errorsByType map[string]int64
	byStream     map[string]int64
	bySubject    map[string]int64
	droppedKeys  int64

	history map[string][]Event

	now func() time.Time
}

// NewCollector creates an empty collector with uptime starting now.
func NewCollector() *Collector {
	c := &Collector{now: time.Now}
	c.resetLocked()
	return c
}

func (c *Collector) resetLocked() {
	c.startedAt = c.now()
	c.fallbackTotal, c.fallbackFailures = 0, 0
	c.loadTotal, c.loadFailures, c.loadDuration = 0, 0, 0
	c.selectionTotal, c.selectionFailures, c.selectionDuration = 0, 0, 0
	c.cacheHits, c.cacheMisses, c.cacheExpired = 0, 0, 0
	c.errorsByType = make(map[string]int64)
	c.byStream = make(map[string]int64)
	c.bySubject = make(map[string]int64)
	c.droppedKeys = 0
	c.history = map[string][]Event{
		CategoryFallback:  nil,
		CategoryLoad:      nil,
		CategorySelection: nil,
		CategoryCache:     nil,
		CategoryError:     nil,
	}
}

// Reset clears all counters and histories and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Collector) appendHistory(category string, ev Event) {
	h := c.history[category]
	if len(h) >= historyCap {
		copy(h, h[1:])
		h[len(h)-1] = ev
	} else {
		h = append(h, ev)
	}
	c.history[category] = h
}

func (c *Collector) bumpBreakdown(m map[string]int64, key string) {
	if key == "" {
		return
	}
	if _, ok := m[key]; !ok && len(m) >= breakdownCap {
		c.droppedKeys++
		return
	}
	m[key]++
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordFallbackActivation records one fallback question request.
func (c *Collector) RecordFallbackActivation(stream, subject string, d time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbackTotal++
	if !ok {
		c.fallbackFailures++
	}
	c.bumpBreakdown(c.byStream, stream)
	c.bumpBreakdown(c.bySubject, subject)
	c.appendHistory(CategoryFallback, Event{
		At: c.now(), Stream: stream, Subject: subject,
		DurationMS: float64(d.Microseconds()) / 1000, Outcome: outcome(ok),
	})
}

// RecordLoad records one question bank load, with the number of questions
// loaded on success.
func (c *Collector) RecordLoad(stream, subject string, d time.Duration, count int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadTotal++
	if ok {
		c.loadDuration += d
	} else {
		c.loadFailures++
	}
	c.appendHistory(CategoryLoad, Event{
		At: c.now(), Stream: stream, Subject: subject,
		DurationMS: float64(d.Microseconds()) / 1000, Outcome: outcome(ok), Count: count,
	})
}

// RecordSelection records one sampling operation.
func (c *Collector) RecordSelection(stream, subject string, d time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectionTotal++
	if ok {
		c.selectionDuration += d
	} else {
		c.selectionFailures++
	}
	c.appendHistory(CategorySelection, Event{
		At: c.now(), Stream: stream, Subject: subject,
		DurationMS: float64(d.Microseconds()) / 1000, Outcome: outcome(ok),
	})
}

// RecordCacheOp records one cache lookup outcome: hit, miss, or expired.
func (c *Collector) RecordCacheOp(stream, subject, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch result {
	case "hit":
		c.cacheHits++
	case "miss":
		c.cacheMisses++
	case "expired":
		c.cacheExpired++
	}
	c.appendHistory(CategoryCache, Event{At: c.now(), Stream: stream, Subject: subject, Outcome: result})
}

// RecordError records one error by type and operation.
func (c *Collector) RecordError(errType, operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorsByType[errType]++
	c.appendHistory(CategoryError, Event{At: c.now(), Outcome: errType, Operation: operation})
}

// Detailed returns a copy of the raw history for one category.
func (c *Collector) Detailed(category string) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.history[category]
	if !ok {
		return nil, fmt.Errorf("unknown metrics category %q", category)
	}
	out := make([]Event, len(h))
	copy(out, h)
	return out, nil
}
