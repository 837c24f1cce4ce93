package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/commandclient/internal/storage"
	"github.com/keshon/commandclient/pkg/cmd"
)

type HistoryCommand struct {
	cmd.Base
	store storage.Store
}

func NewHistory(store storage.Store) *HistoryCommand {
	return &HistoryCommand{
		Base: cmd.Base{
			Label:   "history",
			Alias:   []string{"log"},
			Summary: "Show the latest commands used here",
			Params:  []cmd.Param{{Name: "count", Default: "10"}},
		},
		store: store,
	}
}

func (c *HistoryCommand) Category() string { return categoryUtilities }

func (c *HistoryCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	count := 10
	if _, err := fmt.Sscan(inv.Args.Get("count"), &count); err != nil || count < 1 {
		_, rerr := inv.Reply(ctx, "Count must be a positive number.")
		return rerr
	}

	records, err := c.store.History(ctx, inv.Message.GuildID())
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(records) == 0 {
		_, err := inv.Reply(ctx, "No commands recorded yet.")
		return err
	}
	if len(records) > count {
		records = records[len(records)-count:]
	}

	var sb strings.Builder
	for _, r := range records {
		fmt.Fprintf(&sb, "`%s` <@%s> `%s` %s", r.Datetime.Format("2006-01-02 15:04"), r.UserID, r.Command, r.Event)
		if r.Reason != "" {
			fmt.Fprintf(&sb, " (%s)", r.Reason)
		}
		sb.WriteString("\n")
	}
	_, err = inv.Reply(ctx, strings.TrimRight(sb.String(), "\n"))
	return err
}
