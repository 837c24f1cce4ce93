package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/ratelimit"
)

// Kind classifies why a dispatch did not end in COMMAND_RAN.
type Kind int

const (
	KindNone Kind = iota
	NotFromUser
	EditTooOld
	NoPrefixMatch
	CommandNotFound
	CannotReply
	RateLimited
	DmDisabled
	CommandRan
)

var kindNames = map[Kind]string{
	KindNone:        "none",
	NotFromUser:     "not_from_user",
	EditTooOld:      "edit_too_old",
	NoPrefixMatch:   "no_prefix_match",
	CommandNotFound: "command_not_found",
	CannotReply:     "cannot_reply",
	RateLimited:     "rate_limited",
	DmDisabled:      "dm_disabled",
	CommandRan:      "command_ran",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Classified reports whether failures of this kind are reported as
// COMMAND_FAIL. Unclassified failures are ordinary non-invocations and become
// COMMAND_NONE.
func (k Kind) Classified() bool {
	switch k {
	case EditTooOld, CannotReply, RateLimited, DmDisabled, CommandRan:
		return true
	}
	return false
}

var (
	ErrNotFromUser     = errors.New("message is not from a user")
	ErrEditTooOld      = errors.New("edit timestamp higher than max edit duration")
	ErrNoPrefixMatch   = errors.New("does not start with any allowed prefixes")
	ErrCommandNotFound = errors.New("no command found")
	ErrCannotReply     = errors.New("cannot send messages in this channel")
	ErrRateLimited     = errors.New("ratelimited")
	ErrDmDisabled      = errors.New("command with DMs disabled used in DM")
)

// Error is a classified dispatch failure.
type Error struct {
	Kind Kind
	Err  error
	// Command is set once a command was resolved.
	Command cmd.Command
	// Bucket and Remaining are set for RateLimited.
	Bucket    ratelimit.Bucket
	Remaining time.Duration
	// Notice and NoticeErr record the outcome of the DM-disabled notice.
	Notice    cmd.Message
	NoticeErr error
}

func (e *Error) Error() string {
	if e.Command != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Command.Name(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, c cmd.Command) *Error {
	return &Error{Kind: kind, Err: err, Command: c}
}

// KindOf returns the Kind carried by err, or KindNone.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindNone
}
