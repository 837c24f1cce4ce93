package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/commandclient/pkg/ratelimit"
)

// ErrMissingArgument is returned by Args when a required parameter has no token.
var ErrMissingArgument = errors.New("missing argument")

// Command is the contract every registered command fulfils.
type Command interface {
	Name() string
	Aliases() []string
	Description() string
	// Check reports whether token names this command (name or alias).
	Check(token string) bool
	// Args turns the tokens left after the command name into an argument record.
	Args(tokens []string) (Args, error)
	Options() Options
	Run(ctx context.Context, inv *Invocation) error
}

// Options control how the pipeline treats an invocation before Run.
type Options struct {
	// ResponseOptional skips the reply-capability check.
	ResponseOptional bool
	// DisableDM rejects invocations from direct messages.
	DisableDM bool
	// DisableDMReply sends a notice when a DM invocation is rejected.
	DisableDMReply bool
	// Ratelimit is nil for commands without a rate limit.
	Ratelimit *ratelimit.Policy
}

// Args is a parsed argument record, keyed by parameter name.
type Args map[string]string

// Get returns the value for name, or "" if absent.
func (a Args) Get(name string) string { return a[name] }

// Has reports whether name was set.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Param describes one positional parameter.
type Param struct {
	Name     string
	Required bool
	// Rest consumes every remaining token, joined by single spaces.
	Rest    bool
	Default string
}

// ParseArgs assigns tokens to params positionally. Extra tokens beyond the
// last non-rest param are kept under "_".
func ParseArgs(params []Param, tokens []string) (Args, error) {
	args := make(Args, len(params))
	i := 0
	for _, p := range params {
		if p.Rest {
			if i < len(tokens) {
				args[p.Name] = strings.Join(tokens[i:], " ")
				i = len(tokens)
				continue
			}
		} else if i < len(tokens) {
			args[p.Name] = tokens[i]
			i++
			continue
		}
		if p.Required {
			return nil, fmt.Errorf("%w: %s", ErrMissingArgument, p.Name)
		}
		if p.Default != "" {
			args[p.Name] = p.Default
		}
	}
	if i < len(tokens) {
		args["_"] = strings.Join(tokens[i:], " ")
	}
	return args, nil
}

// Base implements everything in Command except Run. Concrete commands embed it.
type Base struct {
	Label   string
	Alias   []string
	Summary string
	Params  []Param
	Opts    Options
}

func (b *Base) Name() string { return b.Label }
func (b *Base) Description() string { return b.Summary }
func (b *Base) Options() Options { return b.Opts }

func (b *Base) Aliases() []string {
	out := make([]string, len(b.Alias))
	copy(out, b.Alias)
	return out
}

// Check compares token with the name and every alias, ignoring case.
func (b *Base) Check(token string) bool {
	if token == "" {
		return false
	}
	if strings.EqualFold(token, b.Label) {
		return true
	}
	for _, a := range b.Alias {
		if strings.EqualFold(token, a) {
			return true
		}
	}
	return false
}

// Args parses tokens with the command's Params.
func (b *Base) Args(tokens []string) (Args, error) {
	return ParseArgs(b.Params, tokens)
}

// Func adapts a plain function into a Command.
type Func struct {
	Base
	Handler func(ctx context.Context, inv *Invocation) error
}

// Run calls Handler.
func (f *Func) Run(ctx context.Context, inv *Invocation) error {
	if f.Handler == nil {
		return nil
	}
	return f.Handler(ctx, inv)
}

// Identifiers returns a command's name followed by its aliases.
func Identifiers(c Command) []string {
	return append([]string{c.Name()}, c.Aliases()...)
}
