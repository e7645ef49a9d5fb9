// Package notify delivers desktop notifications.
package notify

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/infra/config"
)

// Notification is a single desktop notification.
type Notification struct {
	Icon    string
	Title   string
	Message string
}

// Sink shows notifications. Delivery is fire-and-forget: a sink logs its
// own failures and never reports them to the caller.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Log writes notifications to the application log.
type Log struct{}

// Notify implements Sink.
func (Log) Notify(_ context.Context, n Notification) {
	zlog.Info().
		Str("title", n.Title).
		Str("icon", n.Icon).
		Msgf("notify: %s", n.Message)
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Sink.
func (Discard) Notify(context.Context, Notification) {}

// New creates the sink selected by cfg.
// The returned close function releases any bus connection.
func New(cfg config.NotificationConfig) (Sink, func() error, error) {
	nop := func() error { return nil }

	if !cfg.Enabled {
		zlog.Info().Msg("notify: disabled")
		return Discard{}, nop, nil
	}

	switch cfg.Backend {
	case "log":
		return Log{}, nop, nil

	case "dbus":
		d, err := NewDBus(config.AppName)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create dbus notification sink")
		}
		return d, d.Close, nil

	case "auto", "":
		d, err := NewDBus(config.AppName)
		if err != nil {
			zlog.Warn().Err(err).Msg("notify: session bus unavailable, notifications go to the log")
			return Log{}, nop, nil
		}
		return d, d.Close, nil

	default:
		return nil, nil, errors.Newf("unsupported notification backend: %s", cfg.Backend)
	}
}
