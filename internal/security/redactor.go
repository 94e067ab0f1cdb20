package security

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map and attribute keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|api_key|credential|oauth)`)

// Redactor scrubs secrets from log output and config dumps. Token formats
// are matched by pattern; configured secrets (gateway passwords, webhook
// keys, credentials from a followed store) are matched literally. All
// methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	fixed    []string // AddLiteral
	tracked  []string // from the followed CredentialStore
	literals *strings.Replacer
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixed = append(r.fixed, secret)
	r.rebuild()
}

// Follow redacts every secret in store, including ones set later.
func (r *Redactor) Follow(store *CredentialStore) {
	store.Watch(func(secrets []string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tracked = secrets
		r.rebuild()
	})
}

// rebuild compiles the literal secrets into one replacer, longest first so
// overlapping secrets are replaced whole. Callers hold mu.
func (r *Redactor) rebuild() {
	all := slices.Concat(r.fixed, r.tracked)
	slices.SortFunc(all, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	all = slices.Compact(all)
	if len(all) == 0 {
		r.literals = nil
		return
	}
	pairs := make([]string, 0, 2*len(all))
	for _, s := range all {
		pairs = append(pairs, s, RedactPlaceholder)
	}
	r.literals = strings.NewReplacer(pairs...)
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns, literals := r.patterns, r.literals
	r.mu.RUnlock()

	if literals != nil {
		s = literals.Replace(s)
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// IsSecretKey reports whether a map or attribute key names a secret.
func IsSecretKey(key string) bool {
	return secretKeyPattern.MatchString(key)
}

// RedactMap scrubs a decoded config document in place for GET /api/config.
// Non-empty strings under secret-looking keys are replaced outright; every
// other string goes through Redact.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && IsSecretKey(k) {
			m[k] = RedactPlaceholder
			continue
		}
		m[k] = r.redactValue(v)
	}
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		r.RedactMap(val)
	case []any:
		for i, item := range val {
			val[i] = r.redactValue(item)
		}
	case string:
		return r.Redact(val)
	}
	return v
}

// DefaultPatterns returns patterns for the token formats emotewall handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Twitch IRC password: oauth:<30 lowercase alnum>
		regexp.MustCompile(`oauth:[a-z0-9]{20,}`),
		// Helix Authorization header value.
		regexp.MustCompile(`(?i)bearer [a-z0-9]{20,}`),
		// client_secret=... in form bodies and URLs.
		regexp.MustCompile(`client_secret=[^&\s]+`),
	}
}
