package command

import (
	"context"
	"fmt"

	"github.com/keshon/commandclient/pkg/cmd"
)

const categoryMaintenance = "🛠️ Maintenance"

// limitResetter is the part of the rate limiter this command needs.
type limitResetter interface {
	Len() int
	Reset()
}

type ResetLimitsCommand struct {
	cmd.Base
	limiter limitResetter
}

func NewResetLimits(limiter limitResetter) *ResetLimitsCommand {
	return &ResetLimitsCommand{
		Base: cmd.Base{
			Label:   "reset-limits",
			Summary: "Clear every rate-limit bucket",
			Opts:    cmd.Options{DisableDM: true},
		},
		limiter: limiter,
	}
}

func (c *ResetLimitsCommand) Category() string { return categoryMaintenance }

func (c *ResetLimitsCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	n := c.limiter.Len()
	c.limiter.Reset()
	_, err := inv.Reply(ctx, fmt.Sprintf("Cleared %d rate-limit bucket(s).", n))
	return err
}
