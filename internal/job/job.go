// Package job defines the job record mutated by the orchestrator and the
// registry that stores it.
package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the job lifecycle state.
type Status string

// Lifecycle states. Completed and Failed are terminal: the record becomes
// immutable once either is reached.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StageResult records one successfully completed stage. Appended once,
// never mutated afterward.
type StageResult struct {
	Stage      string          `json:"stage"`
	Output     json.RawMessage `json:"output"`
	DurationMs int64           `json:"duration_ms"`
	CacheHit   bool            `json:"cache_hit"`
	Model      string          `json:"model_used,omitempty"`
	Retries    int             `json:"retry_count"`
}

// Failure is the sole diagnostic a failed job exposes.
type Failure struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Job is one document-generation run. It is created on submission and
// mutated only by the orchestrator.
type Job struct {
	ID            uuid.UUID     `json:"id"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	InputText     string        `json:"input_text"`
	StageResults  []StageResult `json:"stage_results"`
	Failure       *Failure      `json:"failure,omitempty"`
	ArtifactPaths []string      `json:"artifact_paths,omitempty"`
}

// New creates a pending job for the given input.
func New(inputText string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		InputText: inputText,
	}
}

// Clone returns a deep copy. Registries hand out clones so no caller ever
// observes a half-updated record.
func (j *Job) Clone() *Job {
	cp := *j
	if j.StageResults != nil {
		cp.StageResults = make([]StageResult, len(j.StageResults))
		copy(cp.StageResults, j.StageResults)
		for i, sr := range j.StageResults {
			if sr.Output != nil {
				cp.StageResults[i].Output = append(json.RawMessage(nil), sr.Output...)
			}
		}
	}
	if j.Failure != nil {
		f := *j.Failure
		cp.Failure = &f
	}
	if j.ArtifactPaths != nil {
		cp.ArtifactPaths = append([]string(nil), j.ArtifactPaths...)
	}
	return &cp
}
