package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|api_key|credential|authorization)`)

// Redactor replaces secret values in strings and maps with RedactPlaceholder.
// It matches known token formats by pattern and runtime secrets (the
// configured bearer tokens) by literal value. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddLiteral registers a secret value to redact on sight. Empty strings
// and very short values are ignored to avoid mangling ordinary text.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 6 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces every known secret in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns, literals := r.patterns, r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap walks m in place. String values under secret-looking keys are
// replaced wholesale; other strings go through Redact. Used by
// `config check` before printing the effective configuration.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if val != "" && secretKeyPattern.MatchString(k) {
				m[k] = RedactPlaceholder
			} else {
				m[k] = r.Redact(val)
			}
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		}
	}
}

// DefaultPatterns returns patterns for credentials that travel through the
// client: bearer headers, JWT session tokens and agent runtime API keys.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Bearer credentials in headers or error strings.
		regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/\-]+=*`),
		// JWT: three base64url segments, the first starting with eyJ.
		regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]{8,}\.[a-zA-Z0-9_\-]{8,}\.[a-zA-Z0-9_\-]{8,}`),
		// Agent runtime keys: sk-... and sk-ant-...
		regexp.MustCompile(`sk-(ant-)?[a-zA-Z0-9\-]{20,}`),
	}
}
