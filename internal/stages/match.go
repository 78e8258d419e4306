package stages

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/doc-tailor/internal/inference"
	"github.com/jonathan/doc-tailor/internal/llm"
	"github.com/jonathan/doc-tailor/internal/pipeline"
	"github.com/jonathan/doc-tailor/internal/profile"
	"github.com/jonathan/doc-tailor/internal/prompts"
	"github.com/jonathan/doc-tailor/internal/schemas"
)

const matchMaxTokens = 2048

// Match scores the applicant profile against the extracted job profile and
// produces the match report Generate works from.
type Match struct {
	client Inferer
}

// NewMatch creates the Match stage.
func NewMatch(client Inferer) *Match {
	return &Match{client: client}
}

// Name returns the canonical stage name.
func (s *Match) Name() string { return pipeline.StageMatch }

// Run scores every posting requirement against the profile.
func (s *Match) Run(ctx context.Context, input []byte, prof *profile.Profile) (*pipeline.Result, error) {
	var jobProfile JobProfile
	if err := json.Unmarshal(input, &jobProfile); err != nil {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindBadInput,
			Message: "previous stage payload is not a job profile: " + err.Error(),
		}
	}
	if prof == nil || len(prof.Skills) == 0 {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindProfileUnavailable,
			Message: "applicant profile has no skills to match against",
		}
	}

	prompt := prompts.Format(prompts.MustGet("matching.json", "match"), map[string]string{
		"Requirements": bulleted(jobProfile.Requirements),
		"Skills":       strings.Join(jobProfile.Skills, ", "),
		"Profile":      prof.PromptText(),
	})

	resp, err := s.client.Infer(ctx, inference.Request{
		Prompt:       prompt,
		SystemPrompt: prompts.MustGet("matching.json", "match_system"),
		MaxTokens:    matchMaxTokens,
		Purpose:      inference.PurposeMatch,
	})
	if err != nil {
		return nil, err
	}

	doc := []byte(llm.CleanJSONBlock(resp.Text))
	if err := schemas.ValidateMatchReport(doc); err != nil {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindInvalidModelOutput,
			Message: err.Error(),
		}
	}

	var report MatchReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindInvalidModelOutput,
			Message: "match report did not decode: " + err.Error(),
		}
	}
	report.Profile = jobProfile

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, &pipeline.StageError{Stage: s.Name(), Kind: KindInvalidModelOutput, Message: err.Error()}
	}

	return &pipeline.Result{
		Payload:  payload,
		CacheHit: resp.CacheHit,
		Model:    resp.Model,
		Retries:  resp.Retries,
	}, nil
}

func bulleted(items []string) string {
	if len(items) == 0 {
		return "(none listed)"
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return sb.String()
}
