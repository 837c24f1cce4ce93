package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/keshon/commandclient/pkg/cmd"
)

var messageSeq atomic.Int64

// Message is a line typed into the console, or a reply printed to it.
type Message struct {
	id        string
	content   string
	author    string
	channel   string
	guild     string
	fromUser  bool
	canReply  bool
	createdAt time.Time
	editedAt  time.Time
	out       io.Writer
}

func newMessage(s *Session, content string) *Message {
	return &Message{
		id:        strconv.FormatInt(messageSeq.Add(1), 10),
		content:   content,
		author:    s.user,
		channel:   s.channel,
		guild:     s.guild,
		fromUser:  true,
		canReply:  !s.muted,
		createdAt: s.now(),
		out:       s.out,
	}
}

func (m *Message) ID() string { return m.id }
func (m *Message) Content() string { return m.content }
func (m *Message) AuthorID() string { return m.author }
func (m *Message) FromUser() bool { return m.fromUser }
func (m *Message) ChannelID() string { return m.channel }
func (m *Message) GuildID() string { return m.guild }
func (m *Message) InDM() bool { return m.guild == "" }
func (m *Message) CreatedAt() time.Time { return m.createdAt }
func (m *Message) EditedAt() time.Time { return m.editedAt }
func (m *Message) CanReply() bool { return m.canReply }

// Reply prints content and returns it as a bot-authored message.
func (m *Message) Reply(_ context.Context, content string) (cmd.Message, error) {
	if _, err := fmt.Fprintf(m.out, "< %s\n", content); err != nil {
		return nil, err
	}
	return &Message{
		id:        strconv.FormatInt(messageSeq.Add(1), 10),
		content:   content,
		author:    "bot",
		channel:   m.channel,
		guild:     m.guild,
		createdAt: time.Now(),
		out:       m.out,
	}, nil
}
