// Package dispatch decides, for every inbound message event, whether it
// invokes a registered command, whether that invocation is allowed, and runs
// it. Every dispatch ends in exactly one outcome event.
package dispatch

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/prefix"
	"github.com/keshon/commandclient/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// EventType is the gateway event a message arrived with.
type EventType int

const (
	MessageCreate EventType = iota
	MessageUpdate
)

func (t EventType) String() string {
	if t == MessageUpdate {
		return "MESSAGE_UPDATE"
	}
	return "MESSAGE_CREATE"
}

// Event is one inbound message notification.
type Event struct {
	Type    EventType
	Message cmd.Message
	// ContentChanged is only meaningful for MessageUpdate.
	ContentChanged bool
}

// Config is the construction surface of a Pipeline.
type Config struct {
	// ActivateOnEdits re-dispatches messages whose content was edited.
	ActivateOnEdits bool
	// MaxEditDuration is the largest edit-minus-creation delta still accepted.
	// Zero rejects every edit.
	MaxEditDuration time.Duration
	MentionsEnabled bool
	// Prefix is folded into Prefixes.
	Prefix      string
	Prefixes    []string
	PrefixSpace bool
}

// DefaultConfig has mentions enabled and everything else off.
func DefaultConfig() Config {
	return Config{MentionsEnabled: true}
}

// Pipeline runs the ordered validation chain and the resolved command.
// Dispatch may be called from many goroutines at once.
type Pipeline struct {
	registry *cmd.Registry
	prefixes *prefix.Resolver
	limiter  *ratelimit.Limiter
	reporter *Reporter
	log      zerolog.Logger
	now      func() time.Time

	activateOnEdits atomic.Bool
	maxEditDuration atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry shares an existing registry.
func WithRegistry(r *cmd.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithLimiter shares an existing limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithReporter shares an existing reporter.
func WithReporter(r *Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a Pipeline. It fails when cfg leaves nothing to match a message
// against (no prefixes and mentions disabled).
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = cmd.NewRegistry()
	}
	if p.limiter == nil {
		p.limiter = ratelimit.New(ratelimit.WithClock(p.now))
	}
	if p.reporter == nil {
		p.reporter = NewReporter(p.log)
	}

	prefixes := append([]string{}, cfg.Prefixes...)
	if cfg.Prefix != "" {
		prefixes = append(prefixes, cfg.Prefix)
	}
	resolver, err := prefix.New(prefix.Config{
		Prefixes:        prefixes,
		MentionsEnabled: cfg.MentionsEnabled,
		PrefixSpace:     cfg.PrefixSpace,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	p.prefixes = resolver

	p.activateOnEdits.Store(cfg.ActivateOnEdits)
	p.maxEditDuration.Store(int64(cfg.MaxEditDuration))
	return p, nil
}

// Register adds one command. Duplicate names or aliases are an error.
func (p *Pipeline) Register(c cmd.Command) error { return p.registry.Register(c) }

// RegisterMany adds commands in order, stopping at the first error.
func (p *Pipeline) RegisterMany(cs ...cmd.Command) error { return p.registry.RegisterMany(cs...) }

// RegisterFrom adds every command a source enumerates.
func (p *Pipeline) RegisterFrom(src cmd.Source) error { return p.registry.RegisterFrom(src) }

// UnregisterAll drops every command.
func (p *Pipeline) UnregisterAll() { p.registry.UnregisterAll() }

// Command resolves a raw command-name token.
func (p *Pipeline) Command(token string) (cmd.Command, bool) { return p.registry.Resolve(token) }

// Commands returns the registered commands in registration order.
func (p *Pipeline) Commands() []cmd.Command { return p.registry.All() }

// Prefixes returns the custom prefixes, longest first.
func (p *Pipeline) Prefixes() []string { return p.prefixes.Prefixes() }

// ActivateMentions binds the bot's mention forms. Only the first call counts.
func (p *Pipeline) ActivateMentions(forms ...string) bool {
	return p.prefixes.ActivateMentions(forms...)
}

func (p *Pipeline) SetActivateOnEdits(enabled bool) { p.activateOnEdits.Store(enabled) }
func (p *Pipeline) SetMaxEditDuration(d time.Duration) { p.maxEditDuration.Store(int64(d)) }
func (p *Pipeline) SetMentionsEnabled(enabled bool) { p.prefixes.SetMentionsEnabled(enabled) }

// MaxEditDuration returns the current edit-staleness threshold.
func (p *Pipeline) MaxEditDuration() time.Duration {
	return time.Duration(p.maxEditDuration.Load())
}

// Reporter returns the reporter listeners subscribe to.
func (p *Pipeline) Reporter() *Reporter { return p.reporter }

// Limiter returns the rate limiter backing command policies.
func (p *Pipeline) Limiter() *ratelimit.Limiter { return p.limiter }

// Dispatch handles one inbound event and returns the name of the outcome event
// it emitted, or "" when the event was ignored without one (edits while edit
// activation is off, or edits that did not change the content).
func (p *Pipeline) Dispatch(ctx context.Context, ev Event) string {
	if ev.Message == nil {
		return ""
	}
	if ev.Type == MessageUpdate && (!p.activateOnEdits.Load() || !ev.ContentChanged) {
		return ""
	}

	payload := &Payload{
		ID:         uuid.NewString(),
		Invocation: &cmd.Invocation{Message: ev.Message},
		ReceivedAt: p.now(),
	}

	err := p.run(ctx, ev, payload)
	name := p.reporter.Report(payload, err)
	p.logOutcome(ev, payload, name, err)
	return name
}

func (p *Pipeline) run(ctx context.Context, ev Event, payload *Payload) error {
	msg := ev.Message
	inv := payload.Invocation

	if !msg.FromUser() {
		return newError(NotFromUser, ErrNotFromUser, nil)
	}

	if ev.Type == MessageUpdate {
		if edited := msg.EditedAt(); !edited.IsZero() {
			if edited.Sub(msg.CreatedAt()) > p.MaxEditDuration() {
				return newError(EditTooOld, ErrEditTooOld, nil)
			}
		}
	}

	match, ok := p.prefixes.Resolve(strings.Fields(msg.Content()))
	if !ok {
		return newError(NoPrefixMatch, ErrNoPrefixMatch, nil)
	}
	payload.Prefix = match.Prefix
	inv.Prefix = match.Prefix

	if len(match.Args) == 0 {
		return newError(CommandNotFound, ErrCommandNotFound, nil)
	}
	command, ok := p.registry.Resolve(match.Args[0])
	if !ok {
		return newError(CommandNotFound, fmt.Errorf("%w: %s", ErrCommandNotFound, match.Args[0]), nil)
	}
	payload.Command = command
	inv.Alias = match.Args[0]
	inv.Raw = match.Args[1:]

	opts := command.Options()

	if !opts.ResponseOptional && !msg.CanReply() {
		return newError(CannotReply, ErrCannotReply, command)
	}

	if rl := opts.Ratelimit; rl != nil {
		d := p.limiter.Admit(command.Name(), *rl, ratelimit.ScopeID(rl.Scope, msg))
		if !d.Admitted {
			e := newError(RateLimited, ErrRateLimited, command)
			e.Bucket = d.Bucket
			e.Remaining = d.Remaining
			return e
		}
	}

	if opts.DisableDM && msg.InDM() {
		e := newError(DmDisabled, ErrDmDisabled, command)
		if opts.DisableDMReply {
			e.Notice, e.NoticeErr = msg.Reply(ctx, fmt.Sprintf("Cannot use `%s` in DMs.", command.Name()))
		}
		return e
	}

	args, err := command.Args(inv.Raw)
	if err != nil {
		return newError(CommandRan, fmt.Errorf("parse arguments: %w", err), command)
	}
	inv.Args = args
	payload.Args = maps.Clone(args)

	if err := invoke(ctx, command, inv); err != nil {
		return newError(CommandRan, err, command)
	}
	return nil
}

// invoke runs the handler, turning a panic into an error.
func invoke(ctx context.Context, c cmd.Command, inv *cmd.Invocation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in command %s: %v", c.Name(), rec)
		}
	}()
	return c.Run(ctx, inv)
}

func (p *Pipeline) logOutcome(ev Event, payload *Payload, name string, err error) {
	msg := ev.Message
	var e *zerolog.Event
	switch name {
	case EventCommandRan:
		e = p.log.Info()
	case EventCommandFail:
		e = p.log.Warn().Err(err)
	default:
		e = p.log.Debug().Stringer("reason", KindOf(err))
	}
	e = e.Str("id", payload.ID).
		Stringer("type", ev.Type).
		Str("guild", msg.GuildID()).
		Str("channel", msg.ChannelID()).
		Str("user", msg.AuthorID()).
		Dur("took", p.now().Sub(payload.ReceivedAt))
	if payload.Command != nil {
		e = e.Str("command", payload.Command.Name())
	}
	e.Msg(name)
}
