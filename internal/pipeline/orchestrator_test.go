package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/doc-tailor/internal/job"
	"github.com/jonathan/doc-tailor/internal/profile"
)

const testPosting = "We are hiring a backend engineer to build document pipelines in Go. Apply now."

// fakeStage scripts a stage for orchestrator tests.
type fakeStage struct {
	name  string
	delay time.Duration
	err   error
	// artifacts marks this as the final stage.
	artifacts []string

	mu     sync.Mutex
	calls  int
	inputs [][]byte
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(ctx context.Context, input []byte, prof *profile.Profile) (*Result, error) {
	f.mu.Lock()
	f.calls++
	f.inputs = append(f.inputs, append([]byte(nil), input...))
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{
		Payload:       append([]byte(f.name+":"), input...),
		Model:         "fake-model",
		ArtifactPaths: f.artifacts,
	}, nil
}

func (f *fakeStage) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func healthyStages() []*fakeStage {
	return []*fakeStage{
		{name: StageExtract},
		{name: StageMatch},
		{name: StageGenerate},
		{name: StageRender, artifacts: []string{"out/cv.tex", "out/cover_letter.txt"}},
	}
}

func newTestOrchestrator(cfg Config, stages []*fakeStage) (*Orchestrator, *job.MemoryRegistry) {
	registry := job.NewMemoryRegistry()
	asStages := make([]Stage, len(stages))
	for i, s := range stages {
		asStages[i] = s
	}
	prof := &profile.Profile{Name: "Ada", Email: "ada@example.com", Skills: []string{"Go"}}
	return New(cfg, registry, prof, asStages...), registry
}

func TestSubmitReturnsBeforeCompletion(t *testing.T) {
	stages := healthyStages()
	stages[0].delay = 200 * time.Millisecond
	o, _ := newTestOrchestrator(Config{}, stages)

	start := time.Now()
	id, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Submit must not wait for stages")

	o.Wait()
	j, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, j.Status)
}

func TestHappyPath(t *testing.T) {
	stages := healthyStages()
	o, _ := newTestOrchestrator(Config{}, stages)

	id, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	o.Wait()

	j, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, j.Status)
	assert.Nil(t, j.Failure)

	require.Len(t, j.StageResults, 4)
	wantOrder := []string{StageExtract, StageMatch, StageGenerate, StageRender}
	for i, sr := range j.StageResults {
		assert.Equal(t, wantOrder[i], sr.Stage)
	}
	assert.Equal(t, []string{"out/cv.tex", "out/cover_letter.txt"}, j.ArtifactPaths)
}

func TestStagesAreChained(t *testing.T) {
	stages := healthyStages()
	o, _ := newTestOrchestrator(Config{}, stages)

	_, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	o.Wait()

	// The first stage receives the raw posting; each later stage receives
	// the previous stage's payload.
	require.Len(t, stages[0].inputs, 1)
	assert.Equal(t, []byte(testPosting), stages[0].inputs[0])
	for i := 1; i < 4; i++ {
		require.Len(t, stages[i].inputs, 1)
		prefix := []byte(stages[i-1].name + ":")
		assert.True(t, bytes.HasPrefix(stages[i].inputs[0], prefix),
			"stage %s input should be stage %s output", stages[i].name, stages[i-1].name)
	}
}

func TestMatchStageFailure(t *testing.T) {
	stages := healthyStages()
	stages[1].err = &StageError{Stage: StageMatch, Kind: "index_unavailable", Message: "index unavailable"}
	o, _ := newTestOrchestrator(Config{}, stages)

	id, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	o.Wait()

	j, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, j.Status)

	require.NotNil(t, j.Failure)
	assert.Equal(t, StageMatch, j.Failure.Stage)
	assert.Equal(t, "index_unavailable", j.Failure.Kind)
	assert.Equal(t, "index unavailable", j.Failure.Message)

	// Exactly the Extract result remains inspectable; later stages never ran.
	require.Len(t, j.StageResults, 1)
	assert.Equal(t, StageExtract, j.StageResults[0].Stage)
	assert.Equal(t, 0, stages[2].callCount())
	assert.Equal(t, 0, stages[3].callCount())
	assert.Empty(t, j.ArtifactPaths)
}

func TestSubmitValidation(t *testing.T) {
	o, registry := newTestOrchestrator(Config{}, healthyStages())

	for _, input := range []string{"", "   \n  ", "too short"} {
		_, err := o.Submit(context.Background(), input)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "input %q should be rejected", input)
	}

	jobs, err := registry.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected submissions must not create jobs")
}

func TestGetStatusUnknownJob(t *testing.T) {
	o, _ := newTestOrchestrator(Config{}, healthyStages())

	_, err := o.GetStatus(context.Background(), uuid.New())
	var nf *job.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStageTimeout(t *testing.T) {
	stages := healthyStages()
	stages[2].delay = time.Second
	o, _ := newTestOrchestrator(Config{StageTimeout: 30 * time.Millisecond}, stages)

	id, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	o.Wait()

	j, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, j.Status)
	require.NotNil(t, j.Failure)
	assert.Equal(t, StageGenerate, j.Failure.Stage)
	assert.Equal(t, "timeout", j.Failure.Kind)
	assert.Len(t, j.StageResults, 2)
}

func TestRescheduleIsNoOp(t *testing.T) {
	stages := healthyStages()
	o, _ := newTestOrchestrator(Config{}, stages)

	id, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	o.Wait()

	// Re-invoking execution for a terminal job must not run any stage again.
	o.schedule(id)
	o.Wait()

	for _, s := range stages {
		assert.Equal(t, 1, s.callCount(), "stage %s re-ran", s.name)
	}
	j, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, j.StageResults, 4)
}

func TestConcurrentJobsAreIndependent(t *testing.T) {
	stages := healthyStages()
	stages[0].delay = 20 * time.Millisecond
	o, _ := newTestOrchestrator(Config{}, stages)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id, err := o.Submit(context.Background(), testPosting)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	o.Wait()

	for _, id := range ids {
		j, err := o.GetStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, job.StatusCompleted, j.Status)
		assert.Len(t, j.StageResults, 4)
	}
	assert.Equal(t, 5, stages[0].callCount())
}

func TestInternalErrorClassification(t *testing.T) {
	stages := healthyStages()
	stages[0].err = errors.New("disk full")
	o, _ := newTestOrchestrator(Config{}, stages)

	id, err := o.Submit(context.Background(), testPosting)
	require.NoError(t, err)
	o.Wait()

	j, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, j.Failure)
	assert.Equal(t, "internal", j.Failure.Kind)
	assert.Equal(t, "disk full", j.Failure.Message)
}
