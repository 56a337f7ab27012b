// Package store persists the per-guild suggestion record.
//
// Every backend offers Update, a logical transaction: the record is loaded,
// handed to the caller as a private copy, and saved only if the callback
// returns nil. Two Update calls for the same guild never interleave.
package store

import (
	"context"
	"sync"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
)

// Store is the persistence contract used by the suggestion and sticky packages
type Store interface {
	// Load returns the record of a guild, or a fresh one if none was saved yet
	Load(ctx context.Context, guildID string) (*GuildConfig, error)
	// Save overwrites the record of a guild
	Save(ctx context.Context, guildID string, cfg *GuildConfig) error
	// Update runs fn on the record of a guild and saves the result if fn returns nil
	Update(ctx context.Context, guildID string, fn func(cfg *GuildConfig) error) error
	Close() error
}

// encode serializes a record the same way for every backend
func encode(cfg *GuildConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapIf(err, "encode guild record")
	}

	return data, nil
}

// decode parses a record; empty data yields a fresh record
func decode(data []byte) (*GuildConfig, error) {
	cfg := NewGuildConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapIf(err, "decode guild record")
	}
	cfg.normalize()

	return cfg, nil
}

// Clone returns a deep copy of a record
func Clone(cfg *GuildConfig) (*GuildConfig, error) {
	data, err := encode(cfg)
	if err != nil {
		return nil, err
	}

	return decode(data)
}

// guildLocks hands out one mutex per guild
type guildLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *guildLocks) lock(guildID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[guildID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[guildID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
