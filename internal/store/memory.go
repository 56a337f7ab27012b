package store

import (
	"context"
	"sync"
)

// Memory keeps records in process memory. Records are stored encoded so callers never share maps with the store.
type Memory struct {
	locks guildLocks

	mu      sync.RWMutex
	records map[string][]byte

	// FailSave makes every save fail with the returned error when set. Used by tests.
	FailSave func(guildID string) error
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, guildID string) (*GuildConfig, error) {
	m.mu.RLock()
	data := m.records[guildID]
	m.mu.RUnlock()

	return decode(data)
}

func (m *Memory) Save(_ context.Context, guildID string, cfg *GuildConfig) error {
	if m.FailSave != nil {
		if err := m.FailSave(guildID); err != nil {
			return err
		}
	}

	data, err := encode(cfg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records[guildID] = data
	m.mu.Unlock()

	return nil
}

func (m *Memory) Update(ctx context.Context, guildID string, fn func(cfg *GuildConfig) error) error {
	unlock := m.locks.lock(guildID)
	defer unlock()

	cfg, err := m.Load(ctx, guildID)
	if err != nil {
		return err
	}

	if err = fn(cfg); err != nil {
		return err
	}

	return m.Save(ctx, guildID, cfg)
}

func (m *Memory) Close() error {
	return nil
}
