package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    ErrorKind
		recoverable bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrKindTimeout, true},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), ErrKindTimeout, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, ErrKindConnection, true},
		{"api 429", &googleapi.Error{Code: 429}, ErrKindConnection, true},
		{"api 503", &googleapi.Error{Code: 503}, ErrKindConnection, true},
		{"api 400", &googleapi.Error{Code: 400}, ErrKindRejected, false},
		{"plain error", errors.New("malformed request"), ErrKindRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := Classify(tt.err, "test-model")
			if be.Kind != tt.wantKind {
				t.Errorf("Classify(%v) kind = %s, expected %s", tt.err, be.Kind, tt.wantKind)
			}
			if be.Recoverable() != tt.recoverable {
				t.Errorf("Classify(%v) recoverable = %t, expected %t", tt.err, be.Recoverable(), tt.recoverable)
			}
			if be.Model != "test-model" {
				t.Errorf("expected model to be carried through, got %q", be.Model)
			}
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	orig := &BackendError{Kind: ErrKindTimeout, Model: "m", Cause: errors.New("slow")}
	wrapped := fmt.Errorf("attempt 2: %w", orig)

	got := Classify(wrapped, "other-model")
	if got != orig {
		t.Errorf("expected an already-classified error to pass through unchanged")
	}
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with language id", "```javascript\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n{\"a\": 1}\n  ", `{"a": 1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONBlock(tt.input); got != tt.expected {
				t.Errorf("CleanJSONBlock(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
