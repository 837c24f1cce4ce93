package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/rs/zerolog"
)

// Event names, as seen by listeners and in logs.
const (
	EventCommandRan  = "COMMAND_RAN"
	EventCommandFail = "COMMAND_FAIL"
	EventCommandNone = "COMMAND_NONE"
)

// Payload is the per-dispatch record handed to listeners.
type Payload struct {
	// ID correlates log lines of one dispatch.
	ID         string
	Invocation *cmd.Invocation
	Prefix     string
	Args       cmd.Args
	Command    cmd.Command
	ReceivedAt time.Time
}

// Message is a shortcut for Invocation.Message.
func (p *Payload) Message() cmd.Message {
	if p == nil || p.Invocation == nil {
		return nil
	}
	return p.Invocation.Message
}

// RanEvent is emitted after a command's Run returned nil.
type RanEvent struct {
	*Payload
}

// FailEvent is emitted for every classified failure.
type FailEvent struct {
	*Payload
	Err     *Error
	Command cmd.Command
	// Remaining is only set for RateLimited failures.
	Remaining time.Duration
}

// NoneEvent is emitted when a message simply did not invoke anything.
// Reason says which check stopped it; there is no error attached.
type NoneEvent struct {
	*Payload
	Reason Kind
}

type listeners[T any] struct {
	next int
	fns  map[int]func(T)
	ord  []int
}

func (l *listeners[T]) add(fn func(T)) int {
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.ord = append(l.ord, id)
	return id
}

func (l *listeners[T]) remove(id int) {
	delete(l.fns, id)
	for i, v := range l.ord {
		if v == id {
			l.ord = append(l.ord[:i], l.ord[i+1:]...)
			break
		}
	}
}

func (l *listeners[T]) snapshot() []func(T) {
	out := make([]func(T), 0, len(l.ord))
	for _, id := range l.ord {
		out = append(out, l.fns[id])
	}
	return out
}

// Reporter turns dispatch results into events and fans them out to listeners.
// Listeners run synchronously on the dispatching goroutine; a panicking
// listener is logged and skipped.
type Reporter struct {
	mu   sync.RWMutex
	ran  listeners[RanEvent]
	fail listeners[FailEvent]
	none listeners[NoneEvent]
	log  zerolog.Logger
}

// NewReporter returns a Reporter without listeners.
func NewReporter(logger zerolog.Logger) *Reporter {
	return &Reporter{log: logger}
}

// OnRan registers a COMMAND_RAN listener and returns a func removing it.
func (r *Reporter) OnRan(fn func(RanEvent)) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.ran.add(fn)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ran.remove(id)
	}
}

// OnFail registers a COMMAND_FAIL listener and returns a func removing it.
func (r *Reporter) OnFail(fn func(FailEvent)) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.fail.add(fn)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.fail.remove(id)
	}
}

// OnNone registers a COMMAND_NONE listener and returns a func removing it.
func (r *Reporter) OnNone(fn func(NoneEvent)) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.none.add(fn)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.none.remove(id)
	}
}

// Report emits exactly one event for a finished dispatch: COMMAND_RAN when
// err is nil, COMMAND_FAIL for classified failures, COMMAND_NONE otherwise.
// It returns the name of the event it emitted.
func (r *Reporter) Report(p *Payload, err error) string {
	if err == nil {
		r.emitRan(RanEvent{Payload: p})
		return EventCommandRan
	}

	var de *Error
	if !errors.As(err, &de) {
		de = newError(CommandRan, err, p.Command)
	}

	if !de.Kind.Classified() {
		r.emitNone(NoneEvent{Payload: p, Reason: de.Kind})
		return EventCommandNone
	}

	ev := FailEvent{Payload: p, Err: de, Command: de.Command}
	if de.Kind == RateLimited {
		ev.Remaining = de.Remaining
	}
	r.emitFail(ev)
	return EventCommandFail
}

func (r *Reporter) emitRan(ev RanEvent) {
	r.mu.RLock()
	fns := r.ran.snapshot()
	r.mu.RUnlock()
	for _, fn := range fns {
		r.safely(EventCommandRan, func() { fn(ev) })
	}
}

func (r *Reporter) emitFail(ev FailEvent) {
	r.mu.RLock()
	fns := r.fail.snapshot()
	r.mu.RUnlock()
	for _, fn := range fns {
		r.safely(EventCommandFail, func() { fn(ev) })
	}
}

func (r *Reporter) emitNone(ev NoneEvent) {
	r.mu.RLock()
	fns := r.none.snapshot()
	r.mu.RUnlock()
	for _, fn := range fns {
		r.safely(EventCommandNone, func() { fn(ev) })
	}
}

func (r *Reporter) safely(event string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("event", event).Interface("panic", rec).Msg("listener panicked")
		}
	}()
	fn()
}
