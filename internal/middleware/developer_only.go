package middleware

import (
	"context"
	"errors"

	"github.com/keshon/commandclient/pkg/cmd"
)

// ErrNotDeveloper is returned when someone other than the developer runs a
// restricted command.
var ErrNotDeveloper = errors.New("command is restricted to the developer")

// WithDeveloperOnly lets only users for which isDeveloper is true run the
// command. Others get a short reply and the run fails with ErrNotDeveloper.
func WithDeveloperOnly(isDeveloper func(userID string) bool) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if !isDeveloper(inv.Message.AuthorID()) {
				if _, err := inv.Reply(ctx, "You don't have permission to use this command."); err != nil {
					return errors.Join(ErrNotDeveloper, err)
				}
				return ErrNotDeveloper
			}
			return c.Run(ctx, inv)
		})
	}
}
