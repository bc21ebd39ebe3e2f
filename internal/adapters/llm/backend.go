// Package llm provides the model backends behind core.Model and the
// prompt-driven classifier, query generator and synthesizer built on them.
//
// Backends are created by name through a Registry and combined into a
// Chain, which tries them in order and falls back on failure. The last
// link of a production chain is usually the offline heuristic backend.
package llm

import (
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// BackendConfig configures one model backend. Fields that do not apply to
// a backend kind are ignored.
type BackendConfig struct {
	Name      string
	Model     string
	APIKey    string
	BaseURL   string
	Project   string
	Location  string
	Path      string
	Args      []string
	Timeout   time.Duration
	MaxTokens int
}

// classifyMessage maps a backend failure message onto the error taxonomy
// so that the retry policy can tell transient failures from permanent ones.
func classifyMessage(backend, msg string) *core.DomainError {
	if msg == "" {
		msg = "(no error message captured)"
	}
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, []string{"rate limit", "too many requests", "429", "quota", "resource_exhausted"}):
		return core.ErrRateLimit(backend + ": " + msg)
	case containsAny(lower, []string{"unauthorized", "authentication", "api key", "permission_denied", "401", "403"}):
		return core.ErrAuth(backend + ": " + msg)
	case containsAny(lower, []string{"connection", "network", "unreachable", "no such host", "eof", "503", "502", "unavailable"}):
		return core.ErrNetwork(backend + ": " + msg)
	case containsAny(lower, []string{"deadline", "timeout", "timed out"}):
		return core.ErrTimeout(backend + ": " + msg)
	default:
		return core.ErrCollaborator(core.CodeBackendFailed, backend+": "+msg)
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateForLog(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "... [truncated]"
	}
	return s
}
