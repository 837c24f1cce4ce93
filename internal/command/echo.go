package command

import (
	"context"

	"github.com/keshon/commandclient/pkg/cmd"
)

type EchoCommand struct {
	cmd.Base
}

func NewEcho() *EchoCommand {
	return &EchoCommand{Base: cmd.Base{
		Label:   "echo",
		Alias:   []string{"say"},
		Summary: "Repeat the given text",
		Params:  []cmd.Param{{Name: "text", Required: true, Rest: true}},
		Opts:    cmd.Options{DisableDM: true, DisableDMReply: true},
	}}
}

func (c *EchoCommand) Category() string { return categoryUtilities }

func (c *EchoCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	_, err := inv.Reply(ctx, inv.Args.Get("text"))
	return err
}

func init() {
	cmd.Provide(NewEcho())
}
