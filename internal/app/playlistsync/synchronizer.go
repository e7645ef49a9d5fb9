// Package playlistsync mirrors the player's playlist into the local track
// store: every observed playlist response is replayed with the page's
// session cookies and each returned track is upserted by id.
package playlistsync

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/domain/playlist"
	"github.com/osa030/xiamibox/internal/domain/track"
	"github.com/osa030/xiamibox/internal/infra/cookie"
	"github.com/osa030/xiamibox/internal/infra/xiami"
)

// Fetcher retrieves a playlist with an explicit Cookie header.
type Fetcher interface {
	FetchPlaylist(ctx context.Context, playlistURL, cookieHeader string) (*playlist.Playlist, error)
}

// Writer upserts track records.
type Writer interface {
	Set(ctx context.Context, id string, rec track.Record) error
}

// Result summarises one synchronisation.
type Result struct {
	URL     string
	Written int
	Skipped int
	Failed  int
}

// Synchronizer replays playlist requests and writes their tracks.
type Synchronizer struct {
	cookies cookie.Source
	fetcher Fetcher
	store   Writer
	origin  string
}

// New creates a synchronizer reading cookies for origin.
func New(cookies cookie.Source, fetcher Fetcher, store Writer, origin string) *Synchronizer {
	return &Synchronizer{
		cookies: cookies,
		fetcher: fetcher,
		store:   store,
		origin:  origin,
	}
}

// Handle synchronises the playlist at rawURL. Failures are logged and never
// returned: a failed sync leaves the store as it was and is not retried.
func (s *Synchronizer) Handle(ctx context.Context, rawURL string) error {
	res, err := s.Sync(ctx, rawURL)
	if err != nil {
		zlog.Warn().Err(err).Msgf("playlistsync: sync of %s failed", rawURL)
		return nil
	}
	zlog.Info().Msgf("playlistsync: synced %s: written=%d skipped=%d failed=%d",
		res.URL, res.Written, res.Skipped, res.Failed)
	return nil
}

// Sync strips the query from rawURL, fetches the playlist with the current
// session cookies and upserts every track. Per-track write failures are
// counted and logged; the remaining tracks are still written.
func (s *Synchronizer) Sync(ctx context.Context, rawURL string) (Result, error) {
	target, err := xiami.StripQuery(rawURL)
	if err != nil {
		return Result{}, err
	}
	res := Result{URL: target}

	cookies, err := s.cookies.Cookies(ctx, s.origin)
	if err != nil {
		return res, errors.Wrap(err, "failed to read session cookies")
	}

	pl, err := s.fetcher.FetchPlaylist(ctx, target, cookie.Header(cookies))
	if err != nil {
		return res, errors.Wrap(err, "failed to fetch playlist")
	}

	for i, rec := range pl.Tracks {
		if rec.ID == "" {
			zlog.Warn().Msgf("playlistsync: entry %d of %s has no id, skipping", i, target)
			res.Skipped++
			continue
		}
		if err := s.store.Set(ctx, rec.ID, rec); err != nil {
			zlog.Error().Err(err).Msgf("playlistsync: failed to store track %s", rec.ID)
			res.Failed++
			continue
		}
		res.Written++
	}
	return res, nil
}
