package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/doc-tailor/internal/inference"
	"github.com/jonathan/doc-tailor/internal/pipeline"
	"github.com/jonathan/doc-tailor/internal/profile"
	"github.com/jonathan/doc-tailor/internal/prompts"
)

const generateMaxTokens = 4096

// Generate produces the tailored CV body and cover letter from the match
// report. It makes two model calls, both tagged with the generate purpose.
type Generate struct {
	client Inferer
}

// NewGenerate creates the Generate stage.
func NewGenerate(client Inferer) *Generate {
	return &Generate{client: client}
}

// Name returns the canonical stage name.
func (s *Generate) Name() string { return pipeline.StageGenerate }

// Run generates both documents. The stage result aggregates usage across
// the two calls: cache_hit only when both hit, retries summed.
func (s *Generate) Run(ctx context.Context, input []byte, prof *profile.Profile) (*pipeline.Result, error) {
	var report MatchReport
	if err := json.Unmarshal(input, &report); err != nil {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindBadInput,
			Message: "previous stage payload is not a match report: " + err.Error(),
		}
	}

	data := map[string]string{
		"Role":    valueOr(report.Profile.RoleTitle, "advertised"),
		"Company": valueOr(report.Profile.Company, "the company"),
		"Profile": prof.PromptText(),
		"Matches": summarizeMatches(report.Matches),
	}

	cv, err := s.generateOne(ctx, "cv", data)
	if err != nil {
		return nil, err
	}
	letter, err := s.generateOne(ctx, "cover_letter", data)
	if err != nil {
		return nil, err
	}

	docs := GeneratedDocs{
		RoleTitle:   report.Profile.RoleTitle,
		Company:     report.Profile.Company,
		CV:          strings.TrimSpace(cv.Text),
		CoverLetter: strings.TrimSpace(letter.Text),
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		return nil, &pipeline.StageError{Stage: s.Name(), Kind: KindInvalidModelOutput, Message: err.Error()}
	}

	return &pipeline.Result{
		Payload:  payload,
		CacheHit: cv.CacheHit && letter.CacheHit,
		Model:    letter.Model,
		Retries:  cv.Retries + letter.Retries,
	}, nil
}

func (s *Generate) generateOne(ctx context.Context, kind string, data map[string]string) (*inference.Response, error) {
	return s.client.Infer(ctx, inference.Request{
		Prompt:       prompts.Format(prompts.MustGet("generation.json", kind), data),
		SystemPrompt: prompts.MustGet("generation.json", kind+"_system"),
		MaxTokens:    generateMaxTokens,
		Purpose:      inference.PurposeGenerate,
	})
}

// summarizeMatches renders the strongest matches as prompt context, best
// first.
func summarizeMatches(matches []MatchEntry) string {
	if len(matches) == 0 {
		return "(no scored matches available)"
	}
	ordered := make([]MatchEntry, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	var sb strings.Builder
	for _, m := range ordered {
		fmt.Fprintf(&sb, "- %s (score %.2f)", m.Requirement, m.Score)
		if m.Evidence != "" {
			fmt.Fprintf(&sb, ": %s", m.Evidence)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
