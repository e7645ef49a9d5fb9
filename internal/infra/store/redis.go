package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/osa030/xiamibox/internal/domain/track"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" default:"localhost:6379" validate:"required"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" default:"xiamibox:track:"`
}

// Redis stores each record as a JSON string under KeyPrefix+id.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}
	return &Redis{client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, id string, rec track.Record) error {
	if id == "" {
		return ErrEmptyID
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "failed to encode track %s", id)
	}
	if err := r.client.Set(ctx, r.key(id), payload, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to store track %s", id)
	}
	return nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, id string) (track.Record, error) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return track.Record{}, nil
	}
	if err != nil {
		return track.Record{}, errors.Wrapf(err, "failed to read track %s", id)
	}

	var rec track.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return track.Record{}, errors.Wrapf(err, "failed to decode track %s", id)
	}
	return rec, nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
