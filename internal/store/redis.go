package store

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/bwmarrin/lit"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds how many times an optimistic transaction is retried after a concurrent write
const maxTxRetries = 50

// Redis keeps one JSON record per guild under <prefix><guildID>.
// Update uses WATCH/MULTI, retrying when another writer touched the key.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the given redis:// URL
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.WrapIf(err, "parse redis url")
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapIf(err, "connect to redis")
	}

	return NewRedisWithClient(client), nil
}

// NewRedisWithClient creates a store from an existing client
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "suggestions:guild:"}
}

func (r *Redis) key(guildID string) string {
	return r.prefix + guildID
}

func (r *Redis) get(ctx context.Context, c redis.Cmdable, guildID string) (*GuildConfig, error) {
	data, err := c.Get(ctx, r.key(guildID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewGuildConfig(), nil
		}
		return nil, errors.WrapIf(err, "get guild record")
	}

	return decode(data)
}

func (r *Redis) Load(ctx context.Context, guildID string) (*GuildConfig, error) {
	return r.get(ctx, r.client, guildID)
}

func (r *Redis) Save(ctx context.Context, guildID string, cfg *GuildConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}

	return errors.WrapIf(r.client.Set(ctx, r.key(guildID), data, 0).Err(), "set guild record")
}

func (r *Redis) Update(ctx context.Context, guildID string, fn func(cfg *GuildConfig) error) error {
	key := r.key(guildID)

	txf := func(tx *redis.Tx) error {
		cfg, err := r.get(ctx, tx, guildID)
		if err != nil {
			return err
		}

		if err = fn(cfg); err != nil {
			return err
		}

		data, err := encode(cfg)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		lit.Debug("Concurrent write on guild %s, retrying transaction", guildID)
	}

	return errors.Errorf("update guild %s: too many concurrent writes", guildID)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
