package notify

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	zlog "github.com/rs/zerolog/log"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsNotify = notificationsDest + ".Notify"

	// expireDefault lets the notification server pick the timeout.
	expireDefault = int32(-1)
)

// busCaller is the subset of a bus object used to send notifications.
type busCaller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBus sends notifications through org.freedesktop.Notifications on the
// session bus. Every call creates a new notification.
type DBus struct {
	appName string
	conn    *dbus.Conn
	obj     busCaller
}

// NewDBus connects to a private session bus connection.
func NewDBus(appName string) (*DBus, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to authenticate to session bus")
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to register on session bus")
	}
	return &DBus{
		appName: appName,
		conn:    conn,
		obj:     conn.Object(notificationsDest, notificationsPath),
	}, nil
}

// Notify implements Sink.
func (d *DBus) Notify(ctx context.Context, n Notification) {
	call := d.obj.CallWithContext(ctx, notificationsNotify, 0,
		d.appName,
		uint32(0), // replaces_id: never replace
		n.Icon,
		n.Title,
		n.Message,
		[]string{},
		map[string]dbus.Variant{},
		expireDefault,
	)
	if call.Err != nil {
		zlog.Warn().Err(call.Err).Msgf("notify: failed to send %q", n.Title)
		return
	}

	var id uint32
	if err := call.Store(&id); err == nil {
		zlog.Debug().Msgf("notify: sent %q (id=%d)", n.Title, id)
	}
}

// Close releases the bus connection.
func (d *DBus) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
