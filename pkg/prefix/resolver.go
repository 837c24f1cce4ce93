// Package prefix matches the leading token of a message against the
// configured literal prefixes and the bot's mention forms.
package prefix

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
)

// ErrNoPrefixes is returned by New when there is nothing a message could match.
var ErrNoPrefixes = errors.New("you must pass in prefixes or enable mentions")

// Config is the construction surface of a Resolver.
type Config struct {
	Prefixes        []string
	MentionsEnabled bool
	// PrefixSpace requires the prefix to be its own whitespace-separated token.
	PrefixSpace bool
}

// Match is a successful resolution: the prefix that matched and the tokens
// that follow it.
type Match struct {
	Prefix string
	Args   []string
}

// Resolver holds the prefix set. Safe for concurrent use.
type Resolver struct {
	mu              sync.RWMutex
	custom          []string
	mention         []string
	mentionsEnabled bool
	space           bool
	activated       bool
}

// New builds a Resolver. Custom prefixes are deduplicated case-insensitively
// and sorted longest first, so "!!" is tried before "!".
func New(cfg Config) (*Resolver, error) {
	r := &Resolver{
		mentionsEnabled: cfg.MentionsEnabled,
		space:           cfg.PrefixSpace,
	}

	seen := make(map[string]bool, len(cfg.Prefixes))
	for _, p := range cfg.Prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		r.custom = append(r.custom, p)
	}
	sort.SliceStable(r.custom, func(i, j int) bool {
		return len(r.custom[i]) > len(r.custom[j])
	})

	if len(r.custom) == 0 && !r.mentionsEnabled {
		return nil, ErrNoPrefixes
	}
	return r, nil
}

// ActivateMentions binds the bot's mention forms once its identity is known.
// Only the first call has an effect; it reports whether this call bound them.
func (r *Resolver) ActivateMentions(forms ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activated {
		return false
	}
	r.activated = true
	for _, f := range forms {
		if f == "" || r.isCustom(f) || slices.Contains(r.mention, f) {
			continue
		}
		r.mention = append(r.mention, f)
	}
	return true
}

// Activated reports whether mention forms have been bound.
func (r *Resolver) Activated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activated
}

// SetMentionsEnabled toggles mention prefixes at runtime.
func (r *Resolver) SetMentionsEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mentionsEnabled = enabled
}

// Prefixes returns the custom prefixes, longest first.
func (r *Resolver) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.custom))
	copy(out, r.custom)
	return out
}

// Mentions returns the bound mention forms.
func (r *Resolver) Mentions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.mention))
	copy(out, r.mention)
	return out
}

// Resolve matches the first token. The input slice is not modified.
func (r *Resolver) Resolve(tokens []string) (Match, bool) {
	if len(tokens) == 0 {
		return Match{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	first := tokens[0]
	rest := tokens[1:]

	if r.space {
		if r.isCustom(first) || (r.mentionsEnabled && slices.Contains(r.mention, first)) {
			return Match{Prefix: strings.ToLower(first), Args: slices.Clone(rest)}, true
		}
		return Match{}, false
	}

	for _, p := range r.custom {
		if len(first) >= len(p) && strings.EqualFold(first[:len(p)], p) {
			args := slices.Clone(rest)
			if remainder := first[len(p):]; remainder != "" {
				args = append([]string{remainder}, args...)
			}
			return Match{Prefix: p, Args: args}, true
		}
	}

	if r.mentionsEnabled && slices.Contains(r.mention, first) {
		return Match{Prefix: first, Args: slices.Clone(rest)}, true
	}
	return Match{}, false
}

func (r *Resolver) isCustom(token string) bool {
	for _, p := range r.custom {
		if strings.EqualFold(p, token) {
			return true
		}
	}
	return false
}
