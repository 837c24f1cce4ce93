package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/dispatch"
	"github.com/keshon/commandclient/pkg/retrylimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu       sync.Mutex
	perms    int64
	permErr  error
	sendErrs []error
	sent     []*discordgo.MessageSend
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &discordgo.Message{ID: "reply", ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeSession) UserChannelPermissions(string, string, ...discordgo.RequestOption) (int64, error) {
	return f.perms, f.permErr
}

func restErr(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func testBot(t *testing.T, s *fakeSession) (*Bot, *dispatch.Pipeline) {
	t.Helper()
	p, err := dispatch.New(dispatch.Config{Prefixes: []string{"!"}, MentionsEnabled: true})
	require.NoError(t, err)
	b := newBot(s, p, zerolog.Nop())
	b.retry.InitialDelay = time.Millisecond
	b.retry.ThrottleDelay = time.Millisecond
	b.retry.Jitter = false
	return b, p
}

func userMessage(content, guild string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   guild,
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "someone"},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMessage_Fields(t *testing.T) {
	b, _ := testBot(t, &fakeSession{})

	raw := userMessage("!ping", "g1")
	m := b.wrap(raw)
	assert.True(t, m.FromUser())
	assert.False(t, m.InDM())
	assert.Equal(t, "u1", m.AuthorID())
	assert.True(t, m.EditedAt().IsZero())

	edited := raw.Timestamp.Add(time.Minute)
	raw.EditedTimestamp = &edited
	assert.Equal(t, edited, m.EditedAt())

	raw.Author.Bot = true
	assert.False(t, m.FromUser())
	raw.Author.Bot = false
	raw.WebhookID = "w"
	assert.False(t, m.FromUser())
	raw.WebhookID = ""
	raw.Author.System = true
	assert.False(t, m.FromUser())

	assert.False(t, b.wrap(&discordgo.Message{}).FromUser())
	assert.True(t, b.wrap(userMessage("x", "")).InDM())
}

func TestMessage_CanReply(t *testing.T) {
	s := &fakeSession{}
	b, _ := testBot(t, s)

	assert.True(t, b.wrap(userMessage("x", "")).CanReply(), "always in DMs")
	assert.False(t, b.wrap(userMessage("x", "g")).CanReply(), "bot id unknown before ready")

	b.ready(&discordgo.User{ID: "bot"})
	s.perms = discordgo.PermissionViewChannel
	assert.False(t, b.wrap(userMessage("x", "g")).CanReply())
	s.perms = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	assert.True(t, b.wrap(userMessage("x", "g")).CanReply())
	s.permErr = errors.New("unknown channel")
	assert.False(t, b.wrap(userMessage("x", "g")).CanReply())
}

func TestMessage_ReplyRetries(t *testing.T) {
	s := &fakeSession{sendErrs: []error{restErr(http.StatusTooManyRequests), restErr(http.StatusBadGateway), nil}}
	b, _ := testBot(t, s)

	reply, err := b.wrap(userMessage("!ping", "g")).Reply(context.Background(), "pong")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Content())
	assert.Len(t, s.sent, 3)
	assert.Equal(t, "m1", s.sent[0].Reference.MessageID)

	s = &fakeSession{sendErrs: []error{restErr(http.StatusForbidden)}}
	b, _ = testBot(t, s)
	_, err = b.wrap(userMessage("!ping", "g")).Reply(context.Background(), "pong")
	require.Error(t, err)
	assert.Len(t, s.sent, 1, "4xx is not retried")
	var re *discordgo.RESTError
	assert.ErrorAs(t, err, &re)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	plain := errors.New("io")
	assert.Same(t, plain, classify(plain))
	assert.True(t, retrylimit.IsPermanent(classify(restErr(404))))
	assert.True(t, retrylimit.IsThrottled(classify(restErr(429))))
	assert.True(t, retrylimit.IsServerError(classify(restErr(503))))
}

func TestContentChanged(t *testing.T) {
	msg := userMessage("!ping", "g")
	assert.True(t, contentChanged(&discordgo.MessageUpdate{Message: msg}))
	assert.False(t, contentChanged(&discordgo.MessageUpdate{Message: msg, BeforeUpdate: userMessage("!ping", "g")}))
	assert.True(t, contentChanged(&discordgo.MessageUpdate{Message: msg, BeforeUpdate: userMessage("!pong", "g")}))
	assert.False(t, contentChanged(&discordgo.MessageUpdate{Message: userMessage("", "g")}))
	assert.False(t, contentChanged(&discordgo.MessageUpdate{}))
}

func TestBot_DispatchesGatewayEvents(t *testing.T) {
	s := &fakeSession{perms: replyPermissions}
	b, p := testBot(t, s)
	p.SetActivateOnEdits(true)
	p.SetMaxEditDuration(time.Hour)

	var ran []string
	require.NoError(t, p.Register(&cmd.Func{
		Base: cmd.Base{Label: "ping"},
		Handler: func(ctx context.Context, inv *cmd.Invocation) error {
			ran = append(ran, inv.Prefix)
			_, err := inv.Reply(ctx, "pong")
			return err
		},
	}))

	b.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot", Username: "bot"}})

	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: userMessage("!ping", "g")})
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: userMessage("<@!bot> ping", "g")})
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: userMessage("<@bot> ping", "g")})

	edited := userMessage("!ping", "g")
	at := edited.Timestamp.Add(time.Minute)
	edited.EditedTimestamp = &at
	b.onMessageUpdate(nil, &discordgo.MessageUpdate{Message: edited, BeforeUpdate: userMessage("!pnig", "g")})
	b.onMessageUpdate(nil, &discordgo.MessageUpdate{Message: edited, BeforeUpdate: userMessage("!ping", "g")})

	assert.Equal(t, []string{"!", "<@!bot>", "<@bot>", "!"}, ran)
	assert.Len(t, s.sent, 4)
}
