// Package metrics provides a passive recorder for per-call inference metrics.
// The recorder never influences control flow: recording failures are swallowed
// and logged, and aggregation is read-only.
package metrics

import (
	"log"
	"sort"
	"sync"
	"time"
)

// Outcome classifies how an inference call ended.
type Outcome string

// Outcome constants for metric samples
const (
	OutcomeSuccess  Outcome = "success"
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeError    Outcome = "error"
)

// Sample is one observation of an inference call.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	Stage      string    `json:"stage"`
	Model      string    `json:"model"`
	LatencyMs  int64     `json:"latency_ms"`
	TokenCount int       `json:"token_count"`
	Outcome    Outcome   `json:"outcome"`
}

// Summary is a read-only aggregation over the retention window.
type Summary struct {
	Count        int     `json:"count"`
	ErrorRate    float64 `json:"error_rate"`
	P50LatencyMs int64   `json:"p50_latency_ms"`
	P95LatencyMs int64   `json:"p95_latency_ms"`
	P99LatencyMs int64   `json:"p99_latency_ms"`
	TotalTokens  int     `json:"total_tokens"`
}

// Recorder accumulates samples in memory, bounded by a retention window.
// All methods are safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	retention time.Duration
	samples   []Sample
}

// DefaultRetention bounds how far back Summarize looks.
const DefaultRetention = time.Hour

// NewRecorder creates a recorder with the given retention window.
// A zero retention falls back to DefaultRetention.
func NewRecorder(retention time.Duration) *Recorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Recorder{retention: retention}
}

// Record appends a sample. It never returns an error: pipeline correctness
// must not depend on metrics, so a bad sample is logged and dropped.
func (r *Recorder) Record(s Sample) {
	if r == nil {
		return
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	if s.LatencyMs < 0 {
		log.Printf("metrics: dropping sample with negative latency (stage=%s model=%s)", s.Stage, s.Model)
		return
	}
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// Summarize aggregates samples newer than the retention window.
func (r *Recorder) Summarize() Summary {
	return r.summarizeSince(time.Now().Add(-r.retention))
}

func (r *Recorder) summarizeSince(cutoff time.Time) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latencies []int64
	var errors, tokens int
	for _, s := range r.samples {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		latencies = append(latencies, s.LatencyMs)
		tokens += s.TokenCount
		if s.Outcome == OutcomeError {
			errors++
		}
	}

	summary := Summary{Count: len(latencies), TotalTokens: tokens}
	if summary.Count == 0 {
		return summary
	}
	summary.ErrorRate = float64(errors) / float64(summary.Count)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	summary.P50LatencyMs = percentile(latencies, 0.50)
	summary.P95LatencyMs = percentile(latencies, 0.95)
	summary.P99LatencyMs = percentile(latencies, 0.99)
	return summary
}

// Prune drops samples older than the retention window. Called outside the
// hot path (the server runs it on a ticker).
func (r *Recorder) Prune(now time.Time) int {
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.samples[:0]
	for _, s := range r.samples {
		if !s.Timestamp.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	dropped := len(r.samples) - len(kept)
	r.samples = kept
	return dropped
}

// Len returns the number of retained samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// percentile returns the value at rank p from a sorted slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
