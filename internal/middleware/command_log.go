package middleware

import (
	"context"
	"time"

	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/rs/zerolog"
)

// WithCommandLogger wraps a command to log its execution
func WithCommandLogger(logger zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			msg := inv.Message
			ev.Str("command", c.Name()).
				Str("alias", inv.Alias).
				Str("user", msg.AuthorID()).
				Str("channel", msg.ChannelID()).
				Str("guild", msg.GuildID()).
				Dur("took", time.Since(start)).
				Msg("command executed")
			return err
		})
	}
}
