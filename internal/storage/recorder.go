package storage

import (
	"context"
	"strings"

	"github.com/keshon/commandclient/pkg/dispatch"
	"github.com/rs/zerolog"
)

// AttachHistory records every COMMAND_RAN and every COMMAND_FAIL that names a
// command into store. The returned func detaches both listeners.
func AttachHistory(ctx context.Context, rep *dispatch.Reporter, store Store, logger zerolog.Logger) (detach func()) {
	save := func(p *dispatch.Payload, event, reason string) {
		if p == nil || p.Command == nil || p.Invocation == nil {
			return
		}
		msg := p.Invocation.Message
		rec := HistoryRecord{
			ID:        p.ID,
			ChannelID: msg.ChannelID(),
			UserID:    msg.AuthorID(),
			Command:   p.Command.Name(),
			Alias:     p.Invocation.Alias,
			Args:      strings.Join(p.Invocation.Raw, " "),
			Event:     event,
			Reason:    reason,
			Datetime:  p.ReceivedAt,
		}
		if err := store.AppendHistory(ctx, msg.GuildID(), rec); err != nil {
			logger.Warn().Err(err).Str("id", p.ID).Str("command", rec.Command).Msg("failed to record command history")
		}
	}

	offRan := rep.OnRan(func(e dispatch.RanEvent) {
		save(e.Payload, dispatch.EventCommandRan, "")
	})
	offFail := rep.OnFail(func(e dispatch.FailEvent) {
		save(e.Payload, dispatch.EventCommandFail, e.Err.Kind.String())
	})
	return func() {
		offRan()
		offFail()
	}
}
