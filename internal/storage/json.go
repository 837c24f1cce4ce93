package storage

import (
	"context"

	"github.com/keshon/commandclient/datastore"
	"github.com/rs/zerolog"
)

type record struct {
	CommandsHistoryList []HistoryRecord `json:"cmd_history"`
}

// JSONStore keeps one record per guild in a datastore file.
type JSONStore struct {
	ds *datastore.DataStore
}

func NewJSON(filePath string, logger zerolog.Logger) (*JSONStore, error) {
	cfg := datastore.DefaultConfig(filePath)
	cfg.Logger = logger
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &JSONStore{ds: ds}, nil
}

func (s *JSONStore) AppendHistory(_ context.Context, guildID string, rec HistoryRecord) error {
	return datastore.Update(s.ds, guildKey(guildID), func(r *record) {
		r.CommandsHistoryList = trimHistory(append(r.CommandsHistoryList, rec))
	})
}

func (s *JSONStore) History(_ context.Context, guildID string) ([]HistoryRecord, error) {
	var r record
	if _, err := s.ds.Get(guildKey(guildID), &r); err != nil {
		return nil, err
	}
	return trimHistory(r.CommandsHistoryList), nil
}

func (s *JSONStore) Close() error {
	return s.ds.Close()
}
