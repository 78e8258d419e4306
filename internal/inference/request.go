// Package inference provides the resilient inference client: cache-first
// lookup, bounded retry against the primary backend, a single fallback
// attempt, and unconditional metrics recording.
package inference

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Purpose tags a request with the pipeline stage it serves. It is a closed
// enumeration: requests differing only in purpose are distinct cache entries,
// which keeps one stage's responses from leaking into another.
type Purpose string

// Purpose values, one per stage type.
const (
	PurposeExtract  Purpose = "extract"
	PurposeMatch    Purpose = "match"
	PurposeGenerate Purpose = "generate"
	PurposeRender   Purpose = "render"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeExtract, PurposeMatch, PurposeGenerate, PurposeRender:
		return true
	}
	return false
}

// Request is one ephemeral inference call.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Purpose      Purpose
}

// Fingerprint returns the deterministic cache key for the request: a sha256
// digest over the normalized fields. Normalization trims surrounding
// whitespace but never alters prompt-body casing.
func (r Request) Fingerprint() string {
	h := sha256.New()
	// NUL separators keep field boundaries unambiguous.
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s",
		strings.TrimSpace(r.Prompt),
		strings.TrimSpace(r.SystemPrompt),
		r.MaxTokens,
		r.Purpose,
	)
	return hex.EncodeToString(h.Sum(nil))
}
