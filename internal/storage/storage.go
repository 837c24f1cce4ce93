// Package storage keeps a bounded per-guild history of dispatched commands.
// Two backends exist: the JSON datastore file and an SQLite database.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const commandHistoryLimit int = 20

// dmKey is the scope used for messages outside any guild.
const dmKey = "@dm"

// HistoryRecord is one dispatch outcome worth remembering.
type HistoryRecord struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Command   string    `json:"command"`
	Alias     string    `json:"alias"`
	Args      string    `json:"args"`
	Event     string    `json:"event"`
	Reason    string    `json:"reason,omitempty"`
	Datetime  time.Time `json:"datetime"`
}

// Store persists command history.
type Store interface {
	// AppendHistory adds rec to the guild's history, dropping the oldest
	// entries beyond the history limit.
	AppendHistory(ctx context.Context, guildID string, rec HistoryRecord) error
	// History returns the guild's history, oldest first.
	History(ctx context.Context, guildID string) ([]HistoryRecord, error)
	Close() error
}

// Open returns the backend named by driver ("json" or "sqlite") at path.
func Open(driver, path string, logger zerolog.Logger) (Store, error) {
	switch driver {
	case "", "json":
		return NewJSON(path, logger)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func guildKey(guildID string) string {
	if guildID == "" {
		return dmKey
	}
	return guildID
}

func trimHistory(list []HistoryRecord) []HistoryRecord {
	if len(list) > commandHistoryLimit {
		return list[len(list)-commandHistoryLimit:]
	}
	return list
}
