// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/commandclient/internal/bot"
	"github.com/keshon/commandclient/internal/config"
	"github.com/keshon/commandclient/internal/discord"
	"github.com/keshon/commandclient/internal/logging"
)

func main() {
	cfg := config.New()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFile)
	logger.Info().Strs("prefixes", cfg.Prefixes).Str("storage", cfg.StorageDriver).Msg("starting discord bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := bot.Assemble(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble bot")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close storage")
		}
	}()

	session, err := discord.New(cfg.DiscordToken, rt.Pipeline, logging.Component("discord"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord session")
	}
	if err := rt.Jobs.Start("discord", session.Run); err != nil {
		logger.Fatal().Err(err).Msg("failed to start discord session")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Stringer("signal", s).Msg("shutting down")
	case err := <-rt.Jobs.Errors():
		logger.Error().Err(err).Msg("background job failed")
	}
	cancel()

	logger.Info().Msg("discord bot exited cleanly")
}
