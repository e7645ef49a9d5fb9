package store

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/osa030/xiamibox/internal/domain/track"
)

// FileConfig configures the file store.
type FileConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// File stores one JSON document per track, named <id>.json.
// Writes go to a temp file that is renamed into place, so a reader sees
// either the old or the new record.
type File struct {
	dir string
}

// NewFile creates the directory if needed and returns a file store.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Dir == "" {
		return nil, errors.New("file store directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	return &File{dir: cfg.Dir}, nil
}

func (f *File) path(id string) string {
	return filepath.Join(f.dir, url.PathEscape(id)+".json")
}

// Set implements Store.
func (f *File) Set(_ context.Context, id string, rec track.Record) error {
	if id == "" {
		return ErrEmptyID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "failed to encode track %s", id)
	}

	tmp, err := os.CreateTemp(f.dir, ".track-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write track %s", id)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write track %s", id)
	}
	if err := os.Rename(tmp.Name(), f.path(id)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to store track %s", id)
	}
	return nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, id string) (track.Record, error) {
	if id == "" {
		return track.Record{}, nil
	}
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return track.Record{}, nil
	}
	if err != nil {
		return track.Record{}, errors.Wrapf(err, "failed to read track %s", id)
	}

	var rec track.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return track.Record{}, errors.Wrapf(err, "failed to decode track %s", id)
	}
	return rec, nil
}

// Close implements Store.
func (f *File) Close() error {
	return nil
}
