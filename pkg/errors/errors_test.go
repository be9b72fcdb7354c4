package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNodeNotFound, "node %d not in cluster %d", 999, 42)

	if err.Code != ErrCodeNodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNodeNotFound)
	}
	if want := "NODE_NOT_FOUND: node 999 not in cluster 42"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "fetch cluster %d", 7)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if want := "NETWORK_ERROR: fetch cluster 7: connection refused"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCodeLookup(t *testing.T) {
	payload := New(ErrCodeInvalidPayload, "cluster 42: bad DOT")
	tests := []struct {
		name     string
		err      error
		code     Code
		wantIs   bool
		wantCode Code
	}{
		{"direct", payload, ErrCodeInvalidPayload, true, ErrCodeInvalidPayload},
		{"other code", payload, ErrCodeNetwork, false, ErrCodeInvalidPayload},
		{"outer code wins", Wrap(ErrCodeNetwork, payload, "prefetch"), ErrCodeNetwork, true, ErrCodeNetwork},
		{"through fmt wrapping", fmt.Errorf("build neighborhood: %w", payload), ErrCodeInvalidPayload, true, ErrCodeInvalidPayload},
		{"plain", errors.New("boom"), ErrCodeInternal, false, ""},
		{"nil", nil, ErrCodeInternal, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.wantIs {
				t.Errorf("Is() = %v, want %v", got, tt.wantIs)
			}
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New(ErrCodeClusterNotFound, "cluster 5 does not exist"), "cluster 5 does not exist"},
		{"wrapped by fmt", fmt.Errorf("fetch: %w", New(ErrCodeNetwork, "HTTP 503")), "HTTP 503"},
		{"plain", errors.New("plain error"), "plain error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"node", New(ErrCodeNodeNotFound, "x"), true},
		{"cluster wrapped", Wrap(ErrCodeClusterNotFound, errors.New("404"), "x"), true},
		{"session", New(ErrCodeSessionNotFound, "x"), true},
		{"network", New(ErrCodeNetwork, "x"), false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"interrupted", fmt.Errorf("layout: %w", context.Canceled), ExitInterrupted},
		{"bad flag", New(ErrCodeInvalidInput, "depth must be >= 0"), ExitUsage},
		{"bad config", New(ErrCodeInvalidConfig, "unknown backend"), ExitUsage},
		{"unknown node", New(ErrCodeNodeNotFound, "node 999"), ExitNotFound},
		{"unknown cluster", New(ErrCodeClusterNotFound, "cluster 5"), ExitNotFound},
		{"endpoint down", New(ErrCodeNetwork, "HTTP 503"), ExitUnavailable},
		{"corrupt payload", New(ErrCodeInvalidPayload, "bad DOT"), ExitUnavailable},
		{"uncoded", errors.New("disk full"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
