package logging

import (
	"regexp"
	"sort"
	"strings"
)

// Redacted replaces every secret the sanitizer finds.
const Redacted = "[REDACTED]"

// redaction is one secret shape. repl may reference capture groups.
type redaction struct {
	re   *regexp.Regexp
	repl string
}

// credentialRules cover the secrets this service handles: model provider
// keys, auth headers echoed in provider errors, key=value pairs from config
// or environment dumps, and the password of a pgvector DSN.
var credentialRules = []redaction{
	{regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_-]{20,}`), Redacted},
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), Redacted},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/-]{20,}=*`), "${1}" + Redacted},
	{regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|password)["']?\s*[:=]\s*["']?)[^\s"'&,}]{8,}`), "${1}" + Redacted},
	{regexp.MustCompile(`(?i)((?:postgres(?:ql)?|mysql)://[^:/@\s]+:)[^@\s]+@`), "${1}" + Redacted + "@"},
}

// Sanitizer redacts credentials from log messages and attributes.
type Sanitizer struct {
	rules   []redaction
	secrets []string
}

// NewSanitizer creates a sanitizer for the built-in credential shapes plus
// the given literal secret values, such as configured API keys. Empty and
// very short values are ignored.
func NewSanitizer(secrets ...string) *Sanitizer {
	s := &Sanitizer{rules: credentialRules}
	for _, v := range secrets {
		if v = strings.TrimSpace(v); len(v) >= 8 {
			s.secrets = append(s.secrets, v)
		}
	}
	// Longest first so a secret containing another is replaced whole.
	sort.Slice(s.secrets, func(i, j int) bool { return len(s.secrets[i]) > len(s.secrets[j]) })
	return s
}

// Sanitize returns input with every known secret replaced.
func (s *Sanitizer) Sanitize(input string) string {
	out := input
	for _, v := range s.secrets {
		out = strings.ReplaceAll(out, v, Redacted)
	}
	for _, r := range s.rules {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return out
}
