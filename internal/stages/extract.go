package stages

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/doc-tailor/internal/inference"
	"github.com/jonathan/doc-tailor/internal/llm"
	"github.com/jonathan/doc-tailor/internal/pipeline"
	"github.com/jonathan/doc-tailor/internal/profile"
	"github.com/jonathan/doc-tailor/internal/prompts"
	"github.com/jonathan/doc-tailor/internal/schemas"
)

// extractMaxTokens bounds the structured-extraction response.
const extractMaxTokens = 2048

// Extract turns raw posting text into a structured JobProfile. HTML input
// is reduced to visible text before prompting.
type Extract struct {
	client Inferer
}

// NewExtract creates the Extract stage.
func NewExtract(client Inferer) *Extract {
	return &Extract{client: client}
}

// Name returns the canonical stage name.
func (s *Extract) Name() string { return pipeline.StageExtract }

// Run extracts the job profile from the submitted posting text.
func (s *Extract) Run(ctx context.Context, input []byte, prof *profile.Profile) (*pipeline.Result, error) {
	text := string(input)
	if looksLikeHTML(text) {
		text = stripMarkup(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindEmptyPosting,
			Message: "posting contains no extractable text",
		}
	}

	prompt := prompts.Format(prompts.MustGet("extraction.json", "job_profile"),
		map[string]string{"Posting": text})

	resp, err := s.client.Infer(ctx, inference.Request{
		Prompt:       prompt,
		SystemPrompt: prompts.MustGet("extraction.json", "job_profile_system"),
		MaxTokens:    extractMaxTokens,
		Purpose:      inference.PurposeExtract,
	})
	if err != nil {
		return nil, err
	}

	doc := []byte(llm.CleanJSONBlock(resp.Text))
	if err := schemas.ValidateJobProfile(doc); err != nil {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindInvalidModelOutput,
			Message: err.Error(),
		}
	}

	return &pipeline.Result{
		Payload:  doc,
		CacheHit: resp.CacheHit,
		Model:    resp.Model,
		Retries:  resp.Retries,
	}, nil
}

// looksLikeHTML guesses whether the submitted posting is markup rather than
// plain text.
func looksLikeHTML(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"<html", "<body", "<div", "<p>", "<br", "<li"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// stripMarkup reduces an HTML posting to its visible text. On parse failure
// the original text goes to the model as-is.
func stripMarkup(input string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return input
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
