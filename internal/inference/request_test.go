package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Request{Prompt: "Summarize this posting", SystemPrompt: "You are precise", MaxTokens: 512, Purpose: PurposeExtract}
	b := Request{Prompt: "Summarize this posting", SystemPrompt: "You are precise", MaxTokens: 512, Purpose: PurposeExtract}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	a := Request{Prompt: "  Summarize this posting \n", Purpose: PurposeExtract}
	b := Request{Prompt: "Summarize this posting", Purpose: PurposeExtract}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintPreservesCasing(t *testing.T) {
	a := Request{Prompt: "Summarize This Posting", Purpose: PurposeExtract}
	b := Request{Prompt: "summarize this posting", Purpose: PurposeExtract}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintDistinguishesFields(t *testing.T) {
	base := Request{Prompt: "p", SystemPrompt: "s", MaxTokens: 100, Purpose: PurposeExtract}

	variants := []Request{
		{Prompt: "q", SystemPrompt: "s", MaxTokens: 100, Purpose: PurposeExtract},
		{Prompt: "p", SystemPrompt: "t", MaxTokens: 100, Purpose: PurposeExtract},
		{Prompt: "p", SystemPrompt: "s", MaxTokens: 200, Purpose: PurposeExtract},
		{Prompt: "p", SystemPrompt: "s", MaxTokens: 100, Purpose: PurposeMatch},
	}
	for i, v := range variants {
		if v.Fingerprint() == base.Fingerprint() {
			t.Errorf("variant %d should have a distinct fingerprint", i)
		}
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Content shifted across the prompt/system boundary must not collide.
	a := Request{Prompt: "ab", SystemPrompt: "c", Purpose: PurposeExtract}
	b := Request{Prompt: "a", SystemPrompt: "bc", Purpose: PurposeExtract}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestPurposeValid(t *testing.T) {
	for _, p := range []Purpose{PurposeExtract, PurposeMatch, PurposeGenerate, PurposeRender} {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, Purpose("research").Valid())
	assert.False(t, Purpose("").Valid())
}
