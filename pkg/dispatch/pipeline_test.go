package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeMessage struct {
	id, content     string
	author          string
	bot             bool
	channel, guild  string
	created, edited time.Time
	cannotReply     bool
	replyErr        error
	mu              sync.Mutex
	replies         []string
}

func (m *fakeMessage) ID() string { return m.id }
func (m *fakeMessage) Content() string { return m.content }
func (m *fakeMessage) AuthorID() string { return m.author }
func (m *fakeMessage) FromUser() bool { return !m.bot }
func (m *fakeMessage) ChannelID() string { return m.channel }
func (m *fakeMessage) GuildID() string { return m.guild }
func (m *fakeMessage) InDM() bool { return m.guild == "" }
func (m *fakeMessage) CreatedAt() time.Time { return m.created }
func (m *fakeMessage) EditedAt() time.Time { return m.edited }
func (m *fakeMessage) CanReply() bool { return !m.cannotReply }

func (m *fakeMessage) Reply(_ context.Context, content string) (cmd.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, content)
	if m.replyErr != nil {
		return nil, m.replyErr
	}
	return &fakeMessage{id: "reply", content: content, channel: m.channel, guild: m.guild}, nil
}

func guildMessage(content string) *fakeMessage {
	return &fakeMessage{id: "m1", content: content, author: "u1", channel: "c1", guild: "g1", created: epoch}
}

func dmMessage(content string) *fakeMessage {
	return &fakeMessage{id: "m2", content: content, author: "u1", channel: "dm1", created: epoch}
}

type recorder struct {
	mu   sync.Mutex
	ran  []RanEvent
	fail []FailEvent
	none []NoneEvent
}

func record(p *Pipeline) *recorder {
	r := &recorder{}
	p.Reporter().OnRan(func(e RanEvent) { r.mu.Lock(); r.ran = append(r.ran, e); r.mu.Unlock() })
	p.Reporter().OnFail(func(e FailEvent) { r.mu.Lock(); r.fail = append(r.fail, e); r.mu.Unlock() })
	p.Reporter().OnNone(func(e NoneEvent) { r.mu.Lock(); r.none = append(r.none, e); r.mu.Unlock() })
	return r
}

func (r *recorder) total() int { return len(r.ran) + len(r.fail) + len(r.none) }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newPipeline(t *testing.T, cfg Config, opts ...Option) (*Pipeline, *recorder) {
	t.Helper()
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	return p, record(p)
}

func pingCommand(runs *int) *cmd.Func {
	return &cmd.Func{
		Base: cmd.Base{Label: "ping", Alias: []string{"p"}},
		Handler: func(ctx context.Context, inv *cmd.Invocation) error {
			*runs++
			return nil
		},
	}
}

func TestNew_NoPrefixesAndNoMentions(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	p, err := New(Config{Prefix: "!"})
	require.NoError(t, err)
	assert.Equal(t, []string{"!"}, p.Prefixes())
}

func TestDispatch_RunsCommand(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefixes: []string{"!", "!!"}})

	var got *cmd.Invocation
	require.NoError(t, p.Register(&cmd.Func{
		Base: cmd.Base{Label: "echo", Params: []cmd.Param{{Name: "text", Rest: true}}},
		Handler: func(ctx context.Context, inv *cmd.Invocation) error {
			got = inv
			return nil
		},
	}))

	name := p.Dispatch(context.Background(), Event{Message: guildMessage("!!ECHO hello   world")})
	assert.Equal(t, EventCommandRan, name)

	require.Len(t, rec.ran, 1)
	assert.Equal(t, 1, rec.total())
	ev := rec.ran[0]
	assert.Equal(t, "!!", ev.Prefix)
	assert.Equal(t, "hello world", ev.Args.Get("text"))
	assert.NotEmpty(t, ev.ID)

	require.NotNil(t, got)
	assert.Equal(t, "ECHO", got.Alias)
	assert.Equal(t, []string{"hello", "world"}, got.Raw)
}

func TestDispatch_NoPrefixMatchEmitsSingleNone(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	require.NoError(t, p.Register(pingCommand(&runs)))

	name := p.Dispatch(context.Background(), Event{Message: guildMessage("hello there")})
	assert.Equal(t, EventCommandNone, name)
	require.Len(t, rec.none, 1)
	assert.Equal(t, 1, rec.total())
	assert.Equal(t, NoPrefixMatch, rec.none[0].Reason)
	assert.Equal(t, 0, runs)
}

func TestDispatch_EmptyMessageIsNone(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	p.Dispatch(context.Background(), Event{Message: guildMessage("   ")})
	require.Len(t, rec.none, 1)
	assert.Equal(t, NoPrefixMatch, rec.none[0].Reason)
}

func TestDispatch_UnknownCommandIsNone(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	p.Dispatch(context.Background(), Event{Message: guildMessage("!nope")})
	p.Dispatch(context.Background(), Event{Message: guildMessage("!")})
	require.Len(t, rec.none, 2)
	assert.Equal(t, CommandNotFound, rec.none[0].Reason)
	assert.Equal(t, CommandNotFound, rec.none[1].Reason)
	assert.Equal(t, "!", rec.none[0].Prefix)
}

func TestDispatch_NotFromUserIsNone(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	require.NoError(t, p.Register(pingCommand(&runs)))

	m := guildMessage("!ping")
	m.bot = true
	p.Dispatch(context.Background(), Event{Message: m})
	require.Len(t, rec.none, 1)
	assert.Equal(t, NotFromUser, rec.none[0].Reason)
	assert.Equal(t, 0, runs)
}

func TestDispatch_CannotReply(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	require.NoError(t, p.Register(pingCommand(&runs)))

	m := guildMessage("!ping")
	m.cannotReply = true
	name := p.Dispatch(context.Background(), Event{Message: m})

	assert.Equal(t, EventCommandFail, name)
	assert.Empty(t, rec.ran)
	require.Len(t, rec.fail, 1)
	assert.Equal(t, CannotReply, rec.fail[0].Err.Kind)
	assert.ErrorIs(t, rec.fail[0].Err, ErrCannotReply)
	assert.Equal(t, "ping", rec.fail[0].Command.Name())
	assert.Zero(t, rec.fail[0].Remaining)
	assert.Equal(t, 0, runs)
}

func TestDispatch_ResponseOptionalSkipsReplyCheck(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	c := pingCommand(&runs)
	c.Opts.ResponseOptional = true
	require.NoError(t, p.Register(c))

	m := guildMessage("!ping")
	m.cannotReply = true
	p.Dispatch(context.Background(), Event{Message: m})
	assert.Len(t, rec.ran, 1)
	assert.Equal(t, 1, runs)
}

func TestDispatch_GuildRateLimit(t *testing.T) {
	clk := &clock{t: epoch}
	p, rec := newPipeline(t, Config{Prefix: "!"}, WithClock(clk.Now))
	runs := 0
	c := pingCommand(&runs)
	c.Opts.Ratelimit = &ratelimit.Policy{Scope: ratelimit.ScopeGuild, Limit: 1, Duration: 60 * time.Second}
	require.NoError(t, p.Register(c))

	first := guildMessage("!ping")
	second := guildMessage("!ping")
	second.author = "u2"

	assert.Equal(t, EventCommandRan, p.Dispatch(context.Background(), Event{Message: first}))
	clk.Advance(15 * time.Second)
	assert.Equal(t, EventCommandFail, p.Dispatch(context.Background(), Event{Message: second}))

	assert.Equal(t, 1, runs)
	require.Len(t, rec.fail, 1)
	fail := rec.fail[0]
	assert.Equal(t, RateLimited, fail.Err.Kind)
	assert.Greater(t, fail.Remaining, time.Duration(0))
	assert.LessOrEqual(t, fail.Remaining, 60*time.Second)
	assert.Equal(t, 45*time.Second, fail.Remaining)
	assert.Equal(t, 1, fail.Err.Bucket.Usages)

	clk.Advance(45 * time.Second)
	assert.Equal(t, EventCommandRan, p.Dispatch(context.Background(), Event{Message: second}))
	assert.Equal(t, 2, runs)
}

func TestDispatch_UserRateLimitIsPerUser(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	c := pingCommand(&runs)
	c.Opts.Ratelimit = &ratelimit.Policy{Limit: 1, Duration: time.Hour}
	require.NoError(t, p.Register(c))

	a := guildMessage("!ping")
	b := guildMessage("!ping")
	b.author = "u2"
	p.Dispatch(context.Background(), Event{Message: a})
	p.Dispatch(context.Background(), Event{Message: b})
	p.Dispatch(context.Background(), Event{Message: a})

	assert.Equal(t, 2, runs)
	assert.Len(t, rec.fail, 1)
}

func TestDispatch_DmDisabled(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	c := pingCommand(&runs)
	c.Opts.DisableDM = true
	require.NoError(t, p.Register(c))

	m := dmMessage("!ping")
	p.Dispatch(context.Background(), Event{Message: m})

	require.Len(t, rec.fail, 1)
	assert.Equal(t, DmDisabled, rec.fail[0].Err.Kind)
	assert.Nil(t, rec.fail[0].Err.Notice)
	assert.Empty(t, m.replies)
	assert.Equal(t, 0, runs)

	assert.Equal(t, EventCommandRan, p.Dispatch(context.Background(), Event{Message: guildMessage("!ping")}))
}

func TestDispatch_DmDisabledNotice(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	c := pingCommand(&runs)
	c.Opts.DisableDM = true
	c.Opts.DisableDMReply = true
	require.NoError(t, p.Register(c))

	m := dmMessage("!ping")
	p.Dispatch(context.Background(), Event{Message: m})
	require.Len(t, rec.fail, 1)
	assert.Equal(t, []string{"Cannot use `ping` in DMs."}, m.replies)
	assert.NotNil(t, rec.fail[0].Err.Notice)
	assert.NoError(t, rec.fail[0].Err.NoticeErr)

	failing := dmMessage("!ping")
	failing.replyErr = errors.New("forbidden")
	p.Dispatch(context.Background(), Event{Message: failing})
	require.Len(t, rec.fail, 2)
	assert.Equal(t, DmDisabled, rec.fail[1].Err.Kind)
	assert.EqualError(t, rec.fail[1].Err.NoticeErr, "forbidden")
}

func TestDispatch_HandlerErrorAndPanicAreCommandRan(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	boom := errors.New("boom")
	require.NoError(t, p.RegisterMany(
		&cmd.Func{Base: cmd.Base{Label: "fail"}, Handler: func(context.Context, *cmd.Invocation) error { return boom }},
		&cmd.Func{Base: cmd.Base{Label: "panic"}, Handler: func(context.Context, *cmd.Invocation) error { panic("oops") }},
	))

	p.Dispatch(context.Background(), Event{Message: guildMessage("!fail")})
	p.Dispatch(context.Background(), Event{Message: guildMessage("!panic")})

	require.Len(t, rec.fail, 2)
	assert.Equal(t, CommandRan, rec.fail[0].Err.Kind)
	assert.ErrorIs(t, rec.fail[0].Err, boom)
	assert.Equal(t, CommandRan, rec.fail[1].Err.Kind)
	assert.Contains(t, rec.fail[1].Err.Error(), "oops")
	assert.Empty(t, rec.ran)
}

func TestDispatch_ArgumentErrorIsCommandRan(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	require.NoError(t, p.Register(&cmd.Func{
		Base: cmd.Base{Label: "kick", Params: []cmd.Param{{Name: "user", Required: true}}},
	}))

	p.Dispatch(context.Background(), Event{Message: guildMessage("!kick")})
	require.Len(t, rec.fail, 1)
	assert.Equal(t, CommandRan, rec.fail[0].Err.Kind)
	assert.ErrorIs(t, rec.fail[0].Err, cmd.ErrMissingArgument)
}

func TestDispatch_Edits(t *testing.T) {
	runs := 0
	edit := func(delta time.Duration, changed bool) Event {
		m := guildMessage("!ping")
		m.edited = m.created.Add(delta)
		return Event{Type: MessageUpdate, Message: m, ContentChanged: changed}
	}

	t.Run("ignored when activation is off", func(t *testing.T) {
		p, rec := newPipeline(t, Config{Prefix: "!"})
		require.NoError(t, p.Register(pingCommand(&runs)))
		assert.Equal(t, "", p.Dispatch(context.Background(), edit(time.Second, true)))
		assert.Equal(t, 0, rec.total())
	})

	t.Run("unchanged content never dispatches", func(t *testing.T) {
		p, rec := newPipeline(t, Config{Prefix: "!", ActivateOnEdits: true, MaxEditDuration: time.Hour})
		require.NoError(t, p.Register(pingCommand(&runs)))
		assert.Equal(t, "", p.Dispatch(context.Background(), edit(time.Second, false)))
		assert.Equal(t, 0, rec.total())
	})

	t.Run("too old", func(t *testing.T) {
		p, rec := newPipeline(t, Config{Prefix: "!", ActivateOnEdits: true, MaxEditDuration: 10 * time.Second})
		require.NoError(t, p.Register(pingCommand(&runs)))
		p.Dispatch(context.Background(), edit(11*time.Second, true))
		require.Len(t, rec.fail, 1)
		assert.Equal(t, EditTooOld, rec.fail[0].Err.Kind)
	})

	t.Run("zero max rejects any edit", func(t *testing.T) {
		p, rec := newPipeline(t, Config{Prefix: "!", ActivateOnEdits: true})
		require.NoError(t, p.Register(pingCommand(&runs)))
		p.Dispatch(context.Background(), edit(time.Millisecond, true))
		require.Len(t, rec.fail, 1)
		assert.Equal(t, EditTooOld, rec.fail[0].Err.Kind)
	})

	t.Run("within window proceeds", func(t *testing.T) {
		p, rec := newPipeline(t, Config{Prefix: "!", ActivateOnEdits: true, MaxEditDuration: 10 * time.Second})
		require.NoError(t, p.Register(pingCommand(&runs)))
		before := runs
		p.Dispatch(context.Background(), edit(10*time.Second, true))
		assert.Len(t, rec.ran, 1)
		assert.Equal(t, before+1, runs)
	})

	t.Run("setters apply at runtime", func(t *testing.T) {
		p, rec := newPipeline(t, Config{Prefix: "!"})
		require.NoError(t, p.Register(pingCommand(&runs)))
		p.SetActivateOnEdits(true)
		p.SetMaxEditDuration(time.Minute)
		assert.Equal(t, time.Minute, p.MaxEditDuration())
		p.Dispatch(context.Background(), edit(time.Second, true))
		assert.Len(t, rec.ran, 1)
	})
}

func TestDispatch_MentionPrefix(t *testing.T) {
	p, rec := newPipeline(t, DefaultConfig())
	runs := 0
	require.NoError(t, p.Register(pingCommand(&runs)))

	p.Dispatch(context.Background(), Event{Message: guildMessage("<@42> ping")})
	require.Len(t, rec.none, 1)
	assert.Equal(t, NoPrefixMatch, rec.none[0].Reason)

	assert.True(t, p.ActivateMentions("<@42>", "<@!42>"))
	p.Dispatch(context.Background(), Event{Message: guildMessage("<@!42> P")})
	require.Len(t, rec.ran, 1)
	assert.Equal(t, "<@!42>", rec.ran[0].Prefix)
	assert.Equal(t, 1, runs)
}

func TestDispatch_OrderRateLimitBeforeDm(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	c := pingCommand(&runs)
	c.Opts.DisableDM = true
	c.Opts.Ratelimit = &ratelimit.Policy{Limit: 1, Duration: time.Hour}
	require.NoError(t, p.Register(c))

	p.Dispatch(context.Background(), Event{Message: dmMessage("!ping")})
	p.Dispatch(context.Background(), Event{Message: dmMessage("!ping")})
	require.Len(t, rec.fail, 2)
	assert.Equal(t, DmDisabled, rec.fail[0].Err.Kind)
	assert.Equal(t, RateLimited, rec.fail[1].Err.Kind)
}

func TestDispatch_ConcurrentDispatchesRespectLimit(t *testing.T) {
	p, rec := newPipeline(t, Config{Prefix: "!"})
	var mu sync.Mutex
	runs := 0
	require.NoError(t, p.Register(&cmd.Func{
		Base: cmd.Base{Label: "ping", Opts: cmd.Options{
			Ratelimit: &ratelimit.Policy{Scope: ratelimit.ScopeChannel, Limit: 3, Duration: time.Hour},
		}},
		Handler: func(context.Context, *cmd.Invocation) error {
			mu.Lock()
			runs++
			mu.Unlock()
			return nil
		},
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Dispatch(context.Background(), Event{Message: guildMessage("!ping")})
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, runs)
	assert.Len(t, rec.ran, 3)
	assert.Len(t, rec.fail, 29)
}

func TestDispatch_QueryAndUnregister(t *testing.T) {
	p, _ := newPipeline(t, Config{Prefix: "!"})
	runs := 0
	require.NoError(t, p.Register(pingCommand(&runs)))

	c, ok := p.Command("P")
	require.True(t, ok)
	assert.Equal(t, "ping", c.Name())

	assert.ErrorIs(t, p.Register(pingCommand(&runs)), cmd.ErrDuplicateIdentifier)

	p.UnregisterAll()
	_, ok = p.Command("ping")
	assert.False(t, ok)
	assert.Empty(t, p.Commands())
}
