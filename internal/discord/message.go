package discord

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/retrylimit"
)

// replyPermissions are required in a guild channel before a reply is attempted.
const replyPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages

// sender is the part of *discordgo.Session messages talk to.
type sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Message adapts a gateway message to cmd.Message.
type Message struct {
	raw   *discordgo.Message
	bot   *Bot
	botID string
}

var _ cmd.Message = (*Message)(nil)

func (m *Message) ID() string { return m.raw.ID }
func (m *Message) Content() string { return m.raw.Content }
func (m *Message) ChannelID() string { return m.raw.ChannelID }
func (m *Message) GuildID() string { return m.raw.GuildID }
func (m *Message) CreatedAt() time.Time { return m.raw.Timestamp }

// Raw returns the underlying gateway message.
func (m *Message) Raw() *discordgo.Message { return m.raw }

func (m *Message) AuthorID() string {
	if m.raw.Author == nil {
		return ""
	}
	return m.raw.Author.ID
}

// FromUser is false for bots, system messages and webhooks.
func (m *Message) FromUser() bool {
	a := m.raw.Author
	return a != nil && !a.Bot && !a.System && m.raw.WebhookID == ""
}

// InDM reports whether the message arrived outside a guild.
func (m *Message) InDM() bool { return m.raw.GuildID == "" }

func (m *Message) EditedAt() time.Time {
	if m.raw.EditedTimestamp == nil {
		return time.Time{}
	}
	return *m.raw.EditedTimestamp
}

// CanReply is always true in DMs. In guilds the bot needs to see the channel
// and send messages there.
func (m *Message) CanReply() bool {
	if m.InDM() {
		return true
	}
	if m.botID == "" {
		return false
	}
	perms, err := m.bot.session.UserChannelPermissions(m.botID, m.raw.ChannelID)
	if err != nil {
		m.bot.log.Debug().Err(err).Str("channel", m.raw.ChannelID).Msg("failed to resolve channel permissions")
		return false
	}
	return perms&replyPermissions == replyPermissions
}

// Reply sends content as a reply to the message, throttled and retried on
// 429 and 5xx answers.
func (m *Message) Reply(ctx context.Context, content string) (cmd.Message, error) {
	send := &discordgo.MessageSend{
		Content: content,
		Reference: &discordgo.MessageReference{
			MessageID: m.raw.ID,
			ChannelID: m.raw.ChannelID,
			GuildID:   m.raw.GuildID,
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}

	var sent *discordgo.Message
	err := retrylimit.Do(ctx, m.bot.sendLimiter, m.bot.retry, func() error {
		var err error
		sent, err = m.bot.session.ChannelMessageSendComplex(m.raw.ChannelID, send)
		return classify(err)
	})
	if err != nil {
		return nil, err
	}
	return m.bot.wrap(sent), nil
}

// restStatus exposes the HTTP status of a REST error to retrylimit.
type restStatus struct {
	*discordgo.RESTError
}

func (r restStatus) StatusCode() int { return r.Response.StatusCode }
func (r restStatus) Unwrap() error { return r.RESTError }

// classify marks client errors other than 429 as permanent.
func classify(err error) error {
	var re *discordgo.RESTError
	if err == nil || !errors.As(err, &re) || re.Response == nil {
		return err
	}
	status := re.Response.StatusCode
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return retrylimit.Permanent(err)
	}
	return restStatus{re}
}

// contentChanged reports whether an update carries new content. Updates
// without content (embeds resolving, pins) never count; when the previous
// version is not cached any content counts as changed.
func contentChanged(m *discordgo.MessageUpdate) bool {
	if m.Message == nil || m.Content == "" {
		return false
	}
	return m.BeforeUpdate == nil || m.BeforeUpdate.Content != m.Content
}
