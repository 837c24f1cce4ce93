// Package discord connects the dispatch pipeline to the Discord gateway:
// message creates and edits are dispatched as text commands, replies go
// through the REST API.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/commandclient/pkg/dispatch"
	"github.com/keshon/commandclient/pkg/retrylimit"
	"github.com/rs/zerolog"
)

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	session  sender
	pipeline *dispatch.Pipeline
	log      zerolog.Logger

	sendLimiter *retrylimit.AdaptiveLimiter
	retry       retrylimit.Config

	mu    sync.RWMutex
	ctx   context.Context
	botID string
}

// New creates the session without connecting.
func New(token string, p *dispatch.Pipeline, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := newBot(dg, p, logger)
	b.dg = dg
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onMessageUpdate)
	return b, nil
}

func newBot(s sender, p *dispatch.Pipeline, logger zerolog.Logger) *Bot {
	retry := retrylimit.DefaultConfig()
	retry.Logger = logger
	return &Bot{
		session:     s,
		pipeline:    p,
		log:         logger,
		sendLimiter: retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:       retry,
		ctx:         context.Background(),
	}
}

// Run opens the gateway connection and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing gateway session")
	return nil
}

// onReady activates mention prefixes once the bot's own id is known.
func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.ready(r.User)
	b.log.Info().Int("guilds", len(r.Guilds)).Msg("discord bot is running")
}

func (b *Bot) ready(u *discordgo.User) {
	if u == nil {
		return
	}
	b.mu.Lock()
	b.botID = u.ID
	b.mu.Unlock()

	if b.pipeline.ActivateMentions(u.Mention(), "<@!"+u.ID+">") {
		b.log.Info().Str("user", u.Username).Msg("mention prefixes activated")
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	b.pipeline.Dispatch(b.context(), dispatch.Event{
		Type:    dispatch.MessageCreate,
		Message: b.wrap(m.Message),
	})
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil {
		return
	}
	b.pipeline.Dispatch(b.context(), dispatch.Event{
		Type:           dispatch.MessageUpdate,
		Message:        b.wrap(m.Message),
		ContentChanged: contentChanged(m),
	})
}

func (b *Bot) wrap(m *discordgo.Message) *Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Message{raw: m, bot: b, botID: b.botID}
}

func (b *Bot) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}
