// Package trackchange turns get-song responses into desktop notifications
// for tracks already present in the local store.
package trackchange

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/domain/track"
	"github.com/osa030/xiamibox/internal/infra/notify"
)

// Reader looks up track records.
type Reader interface {
	Get(ctx context.Context, id string) (track.Record, error)
}

// Observer is told about every track that triggered a notification.
type Observer func(rec track.Record)

// Notifier announces track changes.
// Every matching response produces a notification; repeats are not
// suppressed.
type Notifier struct {
	store Reader
	sink  notify.Sink
	icon  string

	mu        sync.RWMutex
	observers []Observer
}

// New creates a notifier that shows icon with each notification.
func New(store Reader, sink notify.Sink, icon string) *Notifier {
	return &Notifier{
		store: store,
		sink:  sink,
		icon:  icon,
	}
}

// OnTrackChange registers an observer.
func (n *Notifier) OnTrackChange(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, o)
}

// TrackID returns the final path segment of rawURL, ignoring its query.
func TrackID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", rawURL)
	}
	id := path.Base(u.Path)
	if id == "/" || id == "." {
		return "", nil
	}
	return id, nil
}

// Message builds the notification for rec.
func Message(rec track.Record, icon string) notify.Notification {
	return notify.Notification{
		Icon:    icon,
		Title:   fmt.Sprintf("Track: %s", rec.Name),
		Message: fmt.Sprintf("Artist: %s\nAlbum: %s", rec.Artist, rec.Album),
	}
}

// Handle looks up the track named by rawURL and notifies when it is known.
// A lookup failure is returned; an unknown track is not an error.
func (n *Notifier) Handle(ctx context.Context, rawURL string) error {
	id, err := TrackID(rawURL)
	if err != nil {
		return err
	}
	if id == "" {
		zlog.Debug().Msgf("trackchange: no track id in %s", rawURL)
		return nil
	}

	rec, err := n.store.Get(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "failed to look up track %s", id)
	}
	if rec.IsEmpty() {
		zlog.Debug().Msgf("trackchange: track %s not in store", id)
		return nil
	}
	if rec.ID == "" {
		rec.ID = id
	}

	zlog.Info().Msgf("trackchange: now playing %s (%s)", rec.Name, id)
	n.sink.Notify(ctx, Message(rec, n.icon))

	n.mu.RLock()
	observers := append([]Observer(nil), n.observers...)
	n.mu.RUnlock()
	for _, o := range observers {
		o(rec)
	}
	return nil
}
