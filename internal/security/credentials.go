// Package security provides credential tracking, log redaction, audit
// logging, rate limiting, input validation, and emote URL filtering.
package security

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// CredentialsService is the AppContext service name of the process-wide
// CredentialStore.
const CredentialsService = "security.credentials"

// CredentialStore collects the secrets modules load from config (Helix
// client id and token, IRC OAuth token) under a name such as
// "twitch_token". Watchers are told about every change, which keeps the
// log redactor current across config reloads.
type CredentialStore struct {
	mu       sync.Mutex
	creds    map[string]string
	watchers []func(secrets []string)
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]string)}
}

// Set stores a credential. Watchers run synchronously, after the store is
// unlocked, when the value actually changed.
func (s *CredentialStore) Set(name, value string) {
	s.mu.Lock()
	if old, ok := s.creds[name]; ok && old == value {
		s.mu.Unlock()
		return
	}
	s.creds[name] = value
	secrets := s.secrets()
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(secrets)
	}
}

// Get returns the credential value and true, or "" and false if not found.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.creds[name]
	return v, ok
}

// Names returns the credential names, sorted.
func (s *CredentialStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.creds))
}

// Values returns the distinct non-empty secrets, longest first so that a
// secret containing another is replaced whole.
func (s *CredentialStore) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets()
}

// Len returns the number of stored credentials.
func (s *CredentialStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}

// Watch calls fn with the current secrets right away and again after every
// change.
func (s *CredentialStore) Watch(fn func(secrets []string)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	secrets := s.secrets()
	s.mu.Unlock()
	fn(secrets)
}

func (s *CredentialStore) secrets() []string {
	out := make([]string, 0, len(s.creds))
	for _, v := range s.creds {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	return out
}
