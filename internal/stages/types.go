// Package stages implements the four pipeline stage collaborators: Extract,
// Match, Generate, and Render. Stage payloads are JSON documents; each stage
// consumes the previous stage's payload and embeds whatever the next stage
// needs.
package stages

import (
	"context"

	"github.com/jonathan/doc-tailor/internal/inference"
)

// Inferer is the model-call surface stages depend on. Satisfied by
// *inference.Client in production and by fakes in tests.
type Inferer interface {
	Infer(ctx context.Context, req inference.Request) (*inference.Response, error)
}

// JobProfile is the Extract stage's structured output.
type JobProfile struct {
	RoleTitle    string   `json:"role_title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	Skills       []string `json:"skills"`
	Requirements []string `json:"requirements"`
	NiceToHave   []string `json:"nice_to_have,omitempty"`
}

// MatchEntry scores one posting requirement against the applicant profile.
type MatchEntry struct {
	Requirement string  `json:"requirement"`
	Evidence    string  `json:"evidence,omitempty"`
	Score       float64 `json:"score"`
}

// MatchReport is the Match stage's output. It carries the job profile
// forward so Generate needs no access to earlier payloads.
type MatchReport struct {
	Profile      JobProfile   `json:"profile"`
	Matches      []MatchEntry `json:"matches"`
	OverallScore float64      `json:"overall_score"`
}

// GeneratedDocs is the Generate stage's output.
type GeneratedDocs struct {
	RoleTitle   string `json:"role_title"`
	Company     string `json:"company"`
	CV          string `json:"cv"`
	CoverLetter string `json:"cover_letter"`
}

// Stage failure kinds surfaced through the job's failure record.
const (
	KindEmptyPosting       = "empty_posting"
	KindBadInput           = "bad_input"
	KindInvalidModelOutput = "invalid_model_output"
	KindProfileUnavailable = "profile_unavailable"
	KindEmptyDocuments     = "empty_documents"
	KindWriteFailed        = "write_failed"
)
