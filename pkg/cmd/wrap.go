package cmd

import "context"

// Unwrappable is implemented by wrapped commands so callers can reach the
// underlying command.
type Unwrappable interface {
	Command
	Unwrap() Command
}

// Wrapped wraps a command with a custom Run. Identity, grammar and options
// always come from the inner command, so the registry and the pipeline treat
// a wrapped command exactly like the one it wraps.
type Wrapped struct {
	Inner   Command
	RunFunc func(ctx context.Context, inv *Invocation) error
}

func (w *Wrapped) Name() string { return w.Inner.Name() }
func (w *Wrapped) Aliases() []string { return w.Inner.Aliases() }
func (w *Wrapped) Description() string { return w.Inner.Description() }
func (w *Wrapped) Check(token string) bool { return w.Inner.Check(token) }
func (w *Wrapped) Args(tokens []string) (Args, error) { return w.Inner.Args(tokens) }
func (w *Wrapped) Options() Options { return w.Inner.Options() }

// Run runs the wrapper's RunFunc, or the inner command when it is nil.
func (w *Wrapped) Run(ctx context.Context, inv *Invocation) error {
	if w.RunFunc != nil {
		return w.RunFunc(ctx, inv)
	}
	return w.Inner.Run(ctx, inv)
}

// Unwrap returns the inner command.
func (w *Wrapped) Unwrap() Command { return w.Inner }

// Wrap returns a command that runs run instead of c.Run.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &Wrapped{Inner: c, RunFunc: run}
}

// Root unwraps a command until the underlying command is not Unwrappable.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}
