package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS command_history (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id   TEXT NOT NULL,
	id         TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	command    TEXT NOT NULL,
	alias      TEXT NOT NULL,
	args       TEXT NOT NULL,
	event      TEXT NOT NULL,
	reason     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS command_history_guild ON command_history (guild_id, seq);`

// SQLiteStore keeps history in a single table, trimmed per guild on insert.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer keeps the trim-after-insert sequence consistent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, guildID string, rec HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	key := guildKey(guildID)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO command_history (guild_id, id, channel_id, user_id, command, alias, args, event, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, rec.ID, rec.ChannelID, rec.UserID, rec.Command, rec.Alias, rec.Args, rec.Event, rec.Reason, rec.Datetime.UnixNano())
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM command_history WHERE guild_id = ? AND seq NOT IN (
			SELECT seq FROM command_history WHERE guild_id = ? ORDER BY seq DESC LIMIT ?)`,
		key, key, commandHistoryLimit)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) History(ctx context.Context, guildID string) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, user_id, command, alias, args, event, reason, created_at
		 FROM command_history WHERE guild_id = ? ORDER BY seq ASC`, guildKey(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var nanos int64
		if err := rows.Scan(&rec.ID, &rec.ChannelID, &rec.UserID, &rec.Command, &rec.Alias, &rec.Args, &rec.Event, &rec.Reason, &nanos); err != nil {
			return nil, err
		}
		rec.Datetime = time.Unix(0, nanos).UTC()
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
