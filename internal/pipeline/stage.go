// Package pipeline provides the orchestrator that drives the fixed stage
// sequence per job: Extract, Match, Generate, Render. Stages are opaque
// collaborators; the orchestrator owns job lifecycle state, commits every
// transition to the registry, and never inspects stage payloads.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/doc-tailor/internal/inference"
	"github.com/jonathan/doc-tailor/internal/job"
	"github.com/jonathan/doc-tailor/internal/profile"
)

// Canonical stage names, in execution order.
const (
	StageExtract  = "Extract"
	StageMatch    = "Match"
	StageGenerate = "Generate"
	StageRender   = "Render"
)

// Result is what a stage hands back on success. Payload is opaque to the
// orchestrator and becomes the next stage's input. The inference fields
// attribute the stage's model usage for the job record; a stage that makes
// no model call leaves them zero. ArtifactPaths is set only by the final
// stage.
type Result struct {
	Payload       []byte
	CacheHit      bool
	Model         string
	Retries       int
	ArtifactPaths []string
}

// Stage is one opaque unit of work in the fixed sequence.
type Stage interface {
	Name() string
	Run(ctx context.Context, input []byte, prof *profile.Profile) (*Result, error)
}

// StageError is a failure inside a stage's own logic.
type StageError struct {
	Stage   string
	Kind    string
	Message string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %s", e.Stage, e.Kind, e.Message)
}

// Failure kinds the orchestrator assigns when a stage error carries none of
// its own.
const (
	failKindStage     = "stage_error"
	failKindInference = "inference_error"
	failKindTimeout   = "timeout"
	failKindInternal  = "internal"
)

// classifyFailure maps a stage failure onto the job's diagnostic record.
func classifyFailure(stageName string, err error) *job.Failure {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		kind := stageErr.Kind
		if kind == "" {
			kind = failKindStage
		}
		return &job.Failure{Stage: stageName, Kind: kind, Message: stageErr.Message}
	}

	var infErr *inference.Error
	if errors.As(err, &infErr) {
		return &job.Failure{Stage: stageName, Kind: failKindInference, Message: infErr.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &job.Failure{Stage: stageName, Kind: failKindTimeout, Message: "stage deadline exceeded"}
	}

	return &job.Failure{Stage: stageName, Kind: failKindInternal, Message: err.Error()}
}
