// Package console feeds lines typed on a terminal into the dispatch pipeline
// as if they were chat messages, and prints replies back. It is meant for
// trying commands locally without a gateway connection.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/keshon/commandclient/pkg/dispatch"
	"github.com/rs/zerolog"
)

const (
	editDirective = ":edit "
	muteDirective = ":mute"
)

// Options describe who is typing and where.
type Options struct {
	UserID    string
	ChannelID string
	// GuildID empty means the console behaves like a DM.
	GuildID     string
	HistoryFile string
	Out         io.Writer
	Logger      zerolog.Logger
}

// Session is one console conversation with the pipeline.
type Session struct {
	pipeline *dispatch.Pipeline
	log      zerolog.Logger
	out      io.Writer
	now      func() time.Time

	user, channel, guild string
	historyFile          string
	muted                bool
	last                 *Message
}

func New(p *dispatch.Pipeline, opts Options) *Session {
	s := &Session{
		pipeline:    p,
		log:         opts.Logger,
		out:         opts.Out,
		now:         time.Now,
		user:        opts.UserID,
		channel:     opts.ChannelID,
		guild:       opts.GuildID,
		historyFile: opts.HistoryFile,
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.user == "" {
		s.user = "console"
	}
	if s.channel == "" {
		s.channel = "console"
	}
	if s.historyFile == "" {
		s.historyFile = filepath.Join(os.TempDir(), ".commandclient_history")
	}
	return s
}

// Handle dispatches one input line and returns the emitted event name.
//
// Two directives are understood besides plain messages: ":edit <text>"
// re-sends the previous message as an edit, ":mute" toggles whether replies
// are possible (to exercise the reply-capability check).
func (s *Session) Handle(ctx context.Context, line string) string {
	switch {
	case line == muteDirective:
		s.muted = !s.muted
		fmt.Fprintf(s.out, "replies muted: %v\n", s.muted)
		return ""
	case strings.HasPrefix(line, editDirective):
		if s.last == nil {
			fmt.Fprintln(s.out, "nothing to edit")
			return ""
		}
		edited := *s.last
		changed := edited.content != strings.TrimPrefix(line, editDirective)
		edited.content = strings.TrimPrefix(line, editDirective)
		edited.editedAt = s.now()
		edited.canReply = !s.muted
		s.last = &edited
		return s.dispatch(ctx, dispatch.Event{Type: dispatch.MessageUpdate, Message: &edited, ContentChanged: changed})
	}

	msg := newMessage(s, line)
	s.last = msg
	return s.dispatch(ctx, dispatch.Event{Type: dispatch.MessageCreate, Message: msg})
}

func (s *Session) dispatch(ctx context.Context, ev dispatch.Event) string {
	name := s.pipeline.Dispatch(ctx, ev)
	s.log.Debug().Str("event", name).Str("content", ev.Message.Content()).Msg("console dispatch")
	return name
}

// Run reads lines until EOF, interrupt, "exit" or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     s.historyFile,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          s.out,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		s.Handle(ctx, input)
	}
}
