// Package profile defines the applicant profile passed to pipeline stages.
// A job snapshots its profile reference at submission; later edits never
// affect an in-flight run.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Experience is one role in the applicant's history.
type Experience struct {
	Company string   `json:"company" validate:"required"`
	Role    string   `json:"role" validate:"required"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

// Education is one degree or credential.
type Education struct {
	School string `json:"school" validate:"required"`
	Degree string `json:"degree,omitempty"`
	Year   string `json:"year,omitempty"`
}

// Profile is the applicant profile the pipeline tailors documents from.
type Profile struct {
	Name       string       `json:"name" validate:"required,min=1"`
	Email      string       `json:"email" validate:"required,email"`
	Phone      string       `json:"phone,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Skills     []string     `json:"skills" validate:"required,min=1,dive,required"`
	Experience []Experience `json:"experience,omitempty" validate:"dive"`
	Education  []Education  `json:"education,omitempty" validate:"dive"`
}

// Validate checks the profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Load reads and validates a profile from a JSON file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// PromptText renders the profile as a plain-text block for LLM prompts.
func (p *Profile) PromptText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	if p.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", p.Summary)
	}
	fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(p.Skills, ", "))
	for _, exp := range p.Experience {
		fmt.Fprintf(&sb, "\n%s at %s", exp.Role, exp.Company)
		if exp.Start != "" {
			fmt.Fprintf(&sb, " (%s to %s)", exp.Start, valueOr(exp.End, "present"))
		}
		sb.WriteString("\n")
		for _, b := range exp.Bullets {
			fmt.Fprintf(&sb, "- %s\n", b)
		}
	}
	for _, edu := range p.Education {
		fmt.Fprintf(&sb, "\n%s, %s %s\n", edu.School, edu.Degree, edu.Year)
	}
	return sb.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
