package command

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/ratelimit"
)

type PingCommand struct {
	cmd.Base
}

func NewPing() *PingCommand {
	return &PingCommand{Base: cmd.Base{
		Label:   "ping",
		Summary: "Check that the bot is alive",
		Opts: cmd.Options{
			Ratelimit: &ratelimit.Policy{Scope: ratelimit.ScopeUser, Limit: 3, Duration: 10 * time.Second},
		},
	}}
}

func (c *PingCommand) Category() string { return categoryInformation }

func (c *PingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	reply := "Pong!"
	if created := inv.Message.CreatedAt(); !created.IsZero() {
		reply = fmt.Sprintf("Pong! `%dms`", time.Since(created).Milliseconds())
	}
	_, err := inv.Reply(ctx, reply)
	return err
}

func init() {
	cmd.Provide(NewPing())
}
