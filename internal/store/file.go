package store

import (
	"context"
	"os"
	"path/filepath"

	"emperror.dev/errors"
)

// File stores one JSON document per guild in a directory, named <guildID>.json
type File struct {
	dir   string
	locks guildLocks
}

// NewFile creates the directory if needed and returns a store rooted there
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapIf(err, "create data directory")
	}

	return &File{dir: dir}, nil
}

func (f *File) path(guildID string) string {
	return filepath.Join(f.dir, filepath.Base(guildID)+".json")
}

func (f *File) Load(_ context.Context, guildID string) (*GuildConfig, error) {
	data, err := os.ReadFile(f.path(guildID))
	if err != nil {
		if os.IsNotExist(err) {
			return NewGuildConfig(), nil
		}
		return nil, errors.WrapIf(err, "read guild record")
	}

	return decode(data)
}

// Save writes to a temporary file first and renames it, so a failed write never leaves half a record behind
func (f *File) Save(_ context.Context, guildID string, cfg *GuildConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, guildID+".*.tmp")
	if err != nil {
		return errors.WrapIf(err, "create temporary record")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIf(err, "write guild record")
	}
	if err = tmp.Close(); err != nil {
		return errors.WrapIf(err, "close guild record")
	}

	return errors.WrapIf(os.Rename(tmp.Name(), f.path(guildID)), "replace guild record")
}

func (f *File) Update(ctx context.Context, guildID string, fn func(cfg *GuildConfig) error) error {
	unlock := f.locks.lock(guildID)
	defer unlock()

	cfg, err := f.Load(ctx, guildID)
	if err != nil {
		return err
	}

	if err = fn(cfg); err != nil {
		return err
	}

	return f.Save(ctx, guildID, cfg)
}

func (f *File) Close() error {
	return nil
}
