// Package cmd provides the command core the dispatch pipeline works with: a
// command has a name, aliases, an argument grammar, invocation options and
// Run(ctx, invocation). How messages reach it (Discord gateway, console) is
// defined by adapters that implement Message.
package cmd

import (
	"context"
	"time"
)

// Message is the slice of a platform message the pipeline and commands need.
// Adapters wrap their native message type to satisfy it.
type Message interface {
	ID() string
	Content() string
	AuthorID() string
	// FromUser is false for bots, webhooks and system messages.
	FromUser() bool
	ChannelID() string
	GuildID() string
	InDM() bool
	CreatedAt() time.Time
	// EditedAt is the zero time for messages that were never edited.
	EditedAt() time.Time
	// CanReply reports whether a reply can currently be sent to ChannelID.
	CanReply() bool
	Reply(ctx context.Context, content string) (Message, error)
}

// Invocation is what a command receives when it runs: the originating message,
// the prefix it was invoked with and its parsed arguments.
type Invocation struct {
	Message Message
	Prefix  string
	// Alias is the token the command was resolved from.
	Alias string
	Args  Args
	// Raw holds the tokens left after prefix and command name were consumed.
	Raw []string
}

// Reply sends content to the invocation's channel.
func (inv *Invocation) Reply(ctx context.Context, content string) (Message, error) {
	return inv.Message.Reply(ctx, content)
}
