package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/doc-tailor/internal/cache"
	"github.com/jonathan/doc-tailor/internal/llm"
	"github.com/jonathan/doc-tailor/internal/metrics"
)

// DefaultRetries is the retry budget against the primary backend.
const DefaultRetries = 2

// Response is the result of Infer. Retries counts calls beyond the first
// across primary and fallback; a cache hit reports zero.
type Response struct {
	Text       string
	TokenCount int
	Model      string
	CacheHit   bool
	Retries    int
	Latency    time.Duration
}

// Error is the terminal inference failure, raised only after the retry
// budget and the fallback are both exhausted (or immediately for a
// non-recoverable rejection).
type Error struct {
	Purpose  Purpose
	Model    string
	Attempts int
	Last     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference failed for %s after %d attempts (last model %s): %v",
		e.Purpose, e.Attempts, e.Model, e.Last)
}

func (e *Error) Unwrap() error { return e.Last }

// Config wires the client's collaborators. Cache and Metrics may be nil
// (tests); Fallback may be nil when no fallback model is configured.
type Config struct {
	Primary  llm.Backend
	Fallback llm.Backend
	Cache    *cache.TwoTier
	Metrics  *metrics.Recorder
	Retries  int
	CacheTTL time.Duration
}

// Client is the single call surface stages use for model access.
type Client struct {
	primary  llm.Backend
	fallback llm.Backend
	cache    *cache.TwoTier
	metrics  *metrics.Recorder
	retries  int
	cacheTTL time.Duration
}

// NewClient creates a client. A negative retry count falls back to
// DefaultRetries.
func NewClient(cfg Config) *Client {
	retries := cfg.Retries
	if retries < 0 {
		retries = DefaultRetries
	}
	return &Client{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		retries:  retries,
		cacheTTL: cfg.CacheTTL,
	}
}

// cachedResponse is the serialized form stored in the cache.
type cachedResponse struct {
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	Model      string `json:"model"`
}

// Infer runs one inference call: cache lookup, then primary with bounded
// retry, then one fallback attempt. Successes populate the cache; failures
// never do. A MetricSample is recorded for every outcome.
func (c *Client) Infer(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	fingerprint := req.Fingerprint()

	if resp := c.lookup(fingerprint); resp != nil {
		resp.Latency = time.Since(start)
		c.record(req, resp.Model, resp.Latency, resp.TokenCount, metrics.OutcomeCacheHit)
		return resp, nil
	}

	attempts := 0
	var last *llm.BackendError

	for attempt := 0; attempt <= c.retries; attempt++ {
		completion, err := c.primary.Complete(ctx, req.Prompt, req.SystemPrompt, req.MaxTokens)
		attempts++
		if err == nil {
			return c.succeed(req, fingerprint, completion, c.primary.Model(), attempts, start)
		}
		last = llm.Classify(err, c.primary.Model())
		if !last.Recoverable() {
			// Malformed requests and explicit rejections neither consume the
			// retry budget nor trigger the fallback.
			return c.fail(req, last.Model, attempts, last, start)
		}
		log.Printf("inference: primary %s attempt %d/%d failed (%s), retrying",
			last.Model, attempt+1, c.retries+1, last.Kind)
	}

	if c.fallback != nil {
		completion, err := c.fallback.Complete(ctx, req.Prompt, req.SystemPrompt, req.MaxTokens)
		attempts++
		if err == nil {
			return c.succeed(req, fingerprint, completion, c.fallback.Model(), attempts, start)
		}
		last = llm.Classify(err, c.fallback.Model())
	}

	return c.fail(req, last.Model, attempts, last, start)
}

// lookup returns a cached response or nil.
func (c *Client) lookup(fingerprint string) *Response {
	if c.cache == nil {
		return nil
	}
	data, ok := c.cache.Get(fingerprint)
	if !ok {
		return nil
	}
	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Printf("inference: discarding undecodable cache entry %s: %v", fingerprint, err)
		return nil
	}
	return &Response{
		Text:       cached.Text,
		TokenCount: cached.TokenCount,
		Model:      cached.Model,
		CacheHit:   true,
	}
}

func (c *Client) succeed(req Request, fingerprint string, completion *llm.Completion, model string, attempts int, start time.Time) (*Response, error) {
	resp := &Response{
		Text:       completion.Text,
		TokenCount: completion.TokenCount,
		Model:      model,
		Retries:    attempts - 1,
		Latency:    time.Since(start),
	}

	if c.cache != nil {
		data, err := json.Marshal(cachedResponse{Text: resp.Text, TokenCount: resp.TokenCount, Model: model})
		if err == nil {
			c.cache.Set(fingerprint, data, c.cacheTTL)
		}
	}

	c.record(req, model, resp.Latency, resp.TokenCount, metrics.OutcomeSuccess)
	return resp, nil
}

func (c *Client) fail(req Request, model string, attempts int, last error, start time.Time) (*Response, error) {
	c.record(req, model, time.Since(start), 0, metrics.OutcomeError)
	return nil, &Error{Purpose: req.Purpose, Model: model, Attempts: attempts, Last: last}
}

func (c *Client) record(req Request, model string, latency time.Duration, tokens int, outcome metrics.Outcome) {
	c.metrics.Record(metrics.Sample{
		Stage:      string(req.Purpose),
		Model:      model,
		LatencyMs:  latency.Milliseconds(),
		TokenCount: tokens,
		Outcome:    outcome,
	})
}
