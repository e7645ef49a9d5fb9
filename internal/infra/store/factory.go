package store

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/infra/config"
)

// New creates the store selected by cfg.Type.
// File and SQLite locations default to dataDir when their settings omit them.
func New(ctx context.Context, cfg config.StoreConfig, dataDir string) (Store, error) {
	zlog.Debug().Msgf("creating track store: type=%s settings=%+v", cfg.Type, redact(cfg.Settings))

	switch cfg.Type {
	case "memory":
		return NewMemory(), nil

	case "file":
		fc := FileConfig{Dir: filepath.Join(dataDir, "tracks")}
		if err := decodeSettings(cfg.Settings, &fc); err != nil {
			return nil, errors.Wrap(err, "invalid file store settings")
		}
		return NewFile(fc)

	case "sqlite":
		sc := SQLiteConfig{Path: filepath.Join(dataDir, "tracks.db")}
		if err := decodeSettings(cfg.Settings, &sc); err != nil {
			return nil, errors.Wrap(err, "invalid sqlite store settings")
		}
		return NewSQLite(sc)

	case "redis":
		var rc RedisConfig
		if err := decodeSettings(cfg.Settings, &rc); err != nil {
			return nil, errors.Wrap(err, "invalid redis store settings")
		}
		return NewRedis(ctx, rc)

	default:
		return nil, errors.Newf("unsupported store type: %s", cfg.Type)
	}
}

// decodeSettings overlays settings onto out, then fills defaults and validates.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func redact(settings map[string]any) map[string]any {
	if _, ok := settings["password"]; !ok {
		return settings
	}
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	out["password"] = "***"
	return out
}
