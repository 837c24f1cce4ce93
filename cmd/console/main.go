package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/commandclient/internal/bot"
	"github.com/keshon/commandclient/internal/config"
	"github.com/keshon/commandclient/internal/console"
	"github.com/keshon/commandclient/internal/logging"
	"github.com/spf13/cobra"
)

const defaultConsoleEditWindow = 5 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		guild    string
		user     string
		channel  string
		prefixes []string
		edits    bool
	)

	root := &cobra.Command{
		Use:   "console",
		Short: "Dispatch commands typed on the terminal",
		Long: "Runs the command pipeline against lines read from stdin. " +
			"Type \":edit <text>\" to edit the previous line, \":mute\" to toggle replies, \"exit\" to quit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("prefix") {
				cfg.Prefixes = prefixes
			}
			if edits {
				cfg.ActivateOnEdits = true
				if cfg.MaxEditDuration == 0 {
					cfg.MaxEditDuration = defaultConsoleEditWindow
				}
			}
			logger := logging.Setup(cfg.LogLevel, cfg.LogFile)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := bot.Assemble(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "prefixes: %v, type \"exit\" to quit\n", rt.Pipeline.Prefixes())
			return console.New(rt.Pipeline, console.Options{
				UserID:    user,
				ChannelID: channel,
				GuildID:   guild,
				Out:       cmd.OutOrStdout(),
				Logger:    logging.Component("console"),
			}).Run(ctx)
		},
	}

	root.Flags().StringVarP(&guild, "guild", "g", "", "guild id to pretend to be in (empty means DM)")
	root.Flags().StringVarP(&user, "user", "u", "console", "author id of typed messages")
	root.Flags().StringVarP(&channel, "channel", "c", "console", "channel id of typed messages")
	root.Flags().StringSliceVarP(&prefixes, "prefix", "p", nil, "command prefixes, overrides COMMAND_PREFIXES")
	root.Flags().BoolVarP(&edits, "edits", "e", false, "dispatch :edit lines as message edits")
	return root
}
