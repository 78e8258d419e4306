package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/doc-tailor/internal/pipeline"
	"github.com/jonathan/doc-tailor/internal/profile"
)

// Render materializes the generated documents as files in the artifact
// directory: a LaTeX CV and a plain-text cover letter. It makes no model
// call.
type Render struct {
	dir string
}

// NewRender creates the Render stage writing into dir.
func NewRender(dir string) *Render {
	return &Render{dir: dir}
}

// Name returns the canonical stage name.
func (s *Render) Name() string { return pipeline.StageRender }

// Run writes both artifacts and reports their paths.
func (s *Render) Run(ctx context.Context, input []byte, prof *profile.Profile) (*pipeline.Result, error) {
	var docs GeneratedDocs
	if err := json.Unmarshal(input, &docs); err != nil {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindBadInput,
			Message: "previous stage payload is not generated documents: " + err.Error(),
		}
	}
	if strings.TrimSpace(docs.CV) == "" || strings.TrimSpace(docs.CoverLetter) == "" {
		return nil, &pipeline.StageError{
			Stage:   s.Name(),
			Kind:    KindEmptyDocuments,
			Message: "generated documents are empty",
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, &pipeline.StageError{Stage: s.Name(), Kind: KindWriteFailed, Message: err.Error()}
	}

	token := uuid.New().String()[:8]
	cvPath := filepath.Join(s.dir, fmt.Sprintf("cv_%s.tex", token))
	letterPath := filepath.Join(s.dir, fmt.Sprintf("cover_letter_%s.txt", token))

	if err := os.WriteFile(cvPath, []byte(renderCVLaTeX(prof, &docs)), 0o644); err != nil {
		return nil, &pipeline.StageError{Stage: s.Name(), Kind: KindWriteFailed, Message: err.Error()}
	}
	if err := os.WriteFile(letterPath, []byte(docs.CoverLetter+"\n"), 0o644); err != nil {
		return nil, &pipeline.StageError{Stage: s.Name(), Kind: KindWriteFailed, Message: err.Error()}
	}

	paths := []string{cvPath, letterPath}
	payload, err := json.Marshal(map[string][]string{"artifact_paths": paths})
	if err != nil {
		return nil, &pipeline.StageError{Stage: s.Name(), Kind: KindWriteFailed, Message: err.Error()}
	}

	return &pipeline.Result{
		Payload:       payload,
		ArtifactPaths: paths,
	}, nil
}

// renderCVLaTeX wraps the generated CV body in a minimal article document.
func renderCVLaTeX(prof *profile.Profile, docs *GeneratedDocs) string {
	var sb strings.Builder
	sb.WriteString("\\documentclass[10pt]{article}\n")
	sb.WriteString("\\usepackage[margin=1.8cm]{geometry}\n")
	sb.WriteString("\\pagestyle{empty}\n")
	sb.WriteString("\\begin{document}\n\n")

	if prof != nil {
		fmt.Fprintf(&sb, "\\begin{center}{\\Large %s}\\\\[2pt]\n%s", EscapeLaTeX(prof.Name), EscapeLaTeX(prof.Email))
		if prof.Phone != "" {
			fmt.Fprintf(&sb, " \\textbar{} %s", EscapeLaTeX(prof.Phone))
		}
		sb.WriteString("\\end{center}\n\n")
	}

	for _, line := range strings.Split(docs.CV, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(EscapeLaTeX(trimmed))
		sb.WriteString("\\\\\n")
	}

	sb.WriteString("\n\\end{document}\n")
	return sb.String()
}
