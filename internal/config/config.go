// /internal/config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/keshon/commandclient/pkg/dispatch"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	DeveloperID  string `env:"DEVELOPER_ID"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"json"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	Prefixes        []string      `env:"COMMAND_PREFIXES" envSeparator:"," envDefault:"!"`
	PrefixSpace     bool          `env:"COMMAND_PREFIX_SPACE"`
	MentionsEnabled bool          `env:"COMMAND_MENTIONS" envDefault:"true"`
	ActivateOnEdits bool          `env:"COMMAND_ACTIVATE_ON_EDITS"`
	MaxEditDuration time.Duration `env:"COMMAND_MAX_EDIT_DURATION" envDefault:"0s"`
	RatelimitSweep  time.Duration `env:"RATELIMIT_SWEEP_INTERVAL" envDefault:"1m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load parses the environment. It does not require a Discord token, so the
// console entrypoint can use it too.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.StorageDriver {
	case "json", "sqlite":
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return &cfg, nil
}

// New loads the config for the Discord bot and exits if it is unusable.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN is not set")
	}
	return cfg
}

// Dispatch maps the command settings onto the pipeline config.
func (c *Config) Dispatch() dispatch.Config {
	return dispatch.Config{
		ActivateOnEdits: c.ActivateOnEdits,
		MaxEditDuration: c.MaxEditDuration,
		MentionsEnabled: c.MentionsEnabled,
		Prefixes:        c.Prefixes,
		PrefixSpace:     c.PrefixSpace,
	}
}

// IsDeveloper reports whether userID is the configured developer.
func IsDeveloper(cfg *Config, userID string) bool {
	return cfg != nil && cfg.DeveloperID != "" && cfg.DeveloperID == userID
}
