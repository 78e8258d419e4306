package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/doc-tailor/internal/job"
	"github.com/jonathan/doc-tailor/internal/profile"
)

// DefaultMinInputLen rejects postings too short to tailor anything to.
const DefaultMinInputLen = 40

// ValidationError rejects a submission before any stage runs. It surfaces
// synchronously from Submit.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s", e.Message)
}

// Config holds orchestrator settings, fixed for the process lifetime.
type Config struct {
	// StageTimeout bounds each stage invocation. Zero disables the bound.
	StageTimeout time.Duration
	// MinInputLen is the minimum submitted text length after trimming.
	// Zero falls back to DefaultMinInputLen.
	MinInputLen int
}

// Orchestrator drives jobs through the fixed stage sequence. Distinct jobs
// execute independently and concurrently; within one job, stages are
// strictly sequential.
type Orchestrator struct {
	registry     job.Registry
	stages       []Stage
	profile      *profile.Profile
	stageTimeout time.Duration
	minInputLen  int

	inflight singleflight.Group
	wg       sync.WaitGroup
}

// New creates an orchestrator over the given registry, profile, and stage
// sequence.
func New(cfg Config, registry job.Registry, prof *profile.Profile, stages ...Stage) *Orchestrator {
	minLen := cfg.MinInputLen
	if minLen <= 0 {
		minLen = DefaultMinInputLen
	}
	return &Orchestrator{
		registry:     registry,
		stages:       stages,
		profile:      prof,
		stageTimeout: cfg.StageTimeout,
		minInputLen:  minLen,
	}
}

// Submit validates the posting text, creates a pending job, and schedules
// its background execution. It returns as soon as the job is registered,
// never waiting for any stage.
func (o *Orchestrator) Submit(ctx context.Context, inputText string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(inputText)
	if trimmed == "" {
		return uuid.Nil, &ValidationError{Message: "posting text is empty"}
	}
	if len(trimmed) < o.minInputLen {
		return uuid.Nil, &ValidationError{Message: fmt.Sprintf("posting text shorter than %d characters", o.minInputLen)}
	}

	j := job.New(inputText)
	if err := o.registry.Create(ctx, j); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register job: %w", err)
	}

	o.schedule(j.ID)
	return j.ID, nil
}

// GetStatus returns a read-only snapshot of the job.
func (o *Orchestrator) GetStatus(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	return o.registry.Get(ctx, id)
}

// Jobs returns snapshots of all known jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context) ([]*job.Job, error) {
	return o.registry.List(ctx)
}

// Wait blocks until all scheduled executions have finished. Used for
// graceful shutdown and in tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// schedule runs the job in a background goroutine. Concurrent schedules for
// the same id collapse into one execution; a later schedule for a job no
// longer pending is a no-op inside execute.
func (o *Orchestrator) schedule(id uuid.UUID) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _, _ = o.inflight.Do(id.String(), func() (any, error) {
			o.execute(context.Background(), id)
			return nil, nil
		})
	}()
}

// execute runs the stage sequence for one job. Each transition is committed
// to the registry before the next stage starts.
func (o *Orchestrator) execute(ctx context.Context, id uuid.UUID) {
	j, err := o.registry.Get(ctx, id)
	if err != nil {
		log.Printf("pipeline: cannot load job %s: %v", id, err)
		return
	}
	if j.Status != job.StatusPending {
		// Already running or terminal; re-invocation is a no-op.
		return
	}

	j.Status = job.StatusRunning
	if !o.commit(ctx, j) {
		return
	}
	log.Printf("pipeline: job %s started (%d stages)", id, len(o.stages))

	input := []byte(j.InputText)
	for _, stage := range o.stages {
		result, duration, err := o.runStage(ctx, stage, input)
		if err != nil {
			j.Failure = classifyFailure(stage.Name(), err)
			j.Status = job.StatusFailed
			o.commit(ctx, j)
			log.Printf("pipeline: job %s failed at %s: %v", id, stage.Name(), err)
			return
		}

		j.StageResults = append(j.StageResults, job.StageResult{
			Stage:      stage.Name(),
			Output:     result.Payload,
			DurationMs: duration.Milliseconds(),
			CacheHit:   result.CacheHit,
			Model:      result.Model,
			Retries:    result.Retries,
		})
		if len(result.ArtifactPaths) > 0 {
			j.ArtifactPaths = result.ArtifactPaths
		}
		if !o.commit(ctx, j) {
			return
		}
		input = result.Payload
	}

	j.Status = job.StatusCompleted
	o.commit(ctx, j)
	log.Printf("pipeline: job %s completed", id)
}

// runStage invokes one stage under the configured timeout.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, input []byte) (*Result, time.Duration, error) {
	stageCtx := ctx
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := stage.Run(stageCtx, input, o.profile)
	duration := time.Since(start)
	if err != nil {
		return nil, duration, err
	}
	if result == nil {
		return nil, duration, fmt.Errorf("stage %s returned no result", stage.Name())
	}
	return result, duration, nil
}

// commit persists the job record, stamping updated_at. A registry failure
// aborts execution; the registry keeps the last committed transition.
func (o *Orchestrator) commit(ctx context.Context, j *job.Job) bool {
	j.UpdatedAt = time.Now()
	if err := o.registry.Update(ctx, j); err != nil {
		log.Printf("pipeline: failed to commit job %s: %v", j.ID, err)
		return false
	}
	return true
}
