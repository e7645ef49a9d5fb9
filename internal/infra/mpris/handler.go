// Package mpris exposes the player on the session bus as an MPRIS media
// player, so desktop media keys and applets can drive it.
package mpris

import (
	"context"
	"encoding/base32"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/app/player"
	"github.com/osa030/xiamibox/internal/domain/track"
)

const (
	trackIDPrefix     = "/xiamibox/track/"
	noTrackObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"

	callTimeout = 5 * time.Second
)

var (
	_ types.OrgMprisMediaPlayer2Adapter       = (*Handler)(nil)
	_ types.OrgMprisMediaPlayer2PlayerAdapter = (*Handler)(nil)
)

var errNotSupported = errors.New("not supported")

// Player is the transport surface driven by media keys.
type Player interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Show(ctx context.Context) error
	State() player.State
	NowPlaying() track.Record
}

// Handler adapts Player to the MPRIS root and player interfaces.
type Handler struct {
	// OnQuit is called when a client asks the player to quit. It should
	// start shutdown asynchronously and return.
	OnQuit func() error

	playerName string
	p          Player
	s          *server.Server
	evt        *events.EventHandler

	mu      sync.Mutex
	running bool
}

// NewHandler creates a handler publishing as org.mpris.MediaPlayer2.<playerName>.
func NewHandler(playerName string, p Player) *Handler {
	h := &Handler{playerName: playerName, p: p}
	h.s = server.NewServer(playerName, h, h)
	h.evt = events.NewEventHandler(h.s)
	return h
}

// Start claims the bus name in the background.
func (h *Handler) Start() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	go func() {
		if err := h.s.Listen(); err != nil {
			zlog.Warn().Err(err).Msg("mpris: failed to listen on session bus")
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
		}
	}()
	zlog.Info().Msgf("mpris: registered as %s", h.playerName)
}

// Shutdown releases the bus name.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	h.s.Stop()
	zlog.Info().Msg("mpris: stopped")
}

func (h *Handler) isRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// PlaybackChanged announces a new playback status to clients.
func (h *Handler) PlaybackChanged() {
	if !h.isRunning() {
		return
	}
	h.evt.Player.OnPlayPause()
}

// TrackChanged announces new metadata to clients.
func (h *Handler) TrackChanged() {
	if !h.isRunning() {
		return
	}
	h.evt.Player.OnTitle()
}

func (h *Handler) call(name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		zlog.Warn().Err(err).Msgf("mpris: %s failed", name)
		return err
	}
	return nil
}

// OrgMprisMediaPlayer2Adapter implementation

func (h *Handler) Identity() (string, error) {
	return h.playerName, nil
}

func (h *Handler) CanQuit() (bool, error) {
	return h.OnQuit != nil, nil
}

func (h *Handler) Quit() error {
	if h.OnQuit != nil {
		return h.OnQuit()
	}
	return errors.New("no quit handler added")
}

func (h *Handler) CanRaise() (bool, error) {
	return true, nil
}

func (h *Handler) Raise() error {
	return h.call("raise", h.p.Show)
}

func (h *Handler) HasTrackList() (bool, error) {
	return false, nil
}

func (h *Handler) SupportedUriSchemes() ([]string, error) {
	return nil, nil
}

func (h *Handler) SupportedMimeTypes() ([]string, error) {
	return nil, nil
}

// OrgMprisMediaPlayer2PlayerAdapter implementation

func (h *Handler) Next() error {
	return h.call("next", h.p.Next)
}

func (h *Handler) Previous() error {
	return h.call("previous", h.p.Previous)
}

func (h *Handler) Pause() error {
	return h.call("pause", h.p.Pause)
}

func (h *Handler) PlayPause() error {
	return h.call("playpause", h.p.PlayPause)
}

// Stop pauses; the page has no stop control.
func (h *Handler) Stop() error {
	return h.call("stop", h.p.Pause)
}

func (h *Handler) Play() error {
	return h.call("play", h.p.Play)
}

func (h *Handler) Seek(types.Microseconds) error {
	return errNotSupported
}

func (h *Handler) SetPosition(string, types.Microseconds) error {
	return errNotSupported
}

func (h *Handler) OpenUri(string) error {
	return errNotSupported
}

func (h *Handler) PlaybackStatus() (types.PlaybackStatus, error) {
	switch h.p.State() {
	case player.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case player.StatePaused:
		return types.PlaybackStatusPaused, nil
	default:
		return types.PlaybackStatusStopped, nil
	}
}

func (h *Handler) Rate() (float64, error) {
	return 1, nil
}

func (h *Handler) SetRate(float64) error {
	return errNotSupported
}

func (h *Handler) Metadata() (types.Metadata, error) {
	rec := h.p.NowPlaying()
	if rec.IsEmpty() {
		return types.Metadata{TrackId: dbus.ObjectPath(noTrackObjectPath)}, nil
	}

	var artists []string
	if rec.Artist != "" {
		artists = []string{rec.Artist}
	}
	return types.Metadata{
		TrackId: TrackObjectPath(rec.ID),
		Title:   rec.Name,
		Album:   rec.Album,
		Artist:  artists,
	}, nil
}

func (h *Handler) Volume() (float64, error) {
	return 1, nil
}

func (h *Handler) SetVolume(float64) error {
	return errNotSupported
}

func (h *Handler) Position() (int64, error) {
	return 0, nil
}

func (h *Handler) MinimumRate() (float64, error) {
	return 1, nil
}

func (h *Handler) MaximumRate() (float64, error) {
	return 1, nil
}

func (h *Handler) CanGoNext() (bool, error) {
	return true, nil
}

func (h *Handler) CanGoPrevious() (bool, error) {
	return true, nil
}

func (h *Handler) CanPlay() (bool, error) {
	return true, nil
}

func (h *Handler) CanPause() (bool, error) {
	return true, nil
}

func (h *Handler) CanSeek() (bool, error) {
	return false, nil
}

func (h *Handler) CanControl() (bool, error) {
	return true, nil
}

// TrackObjectPath returns the D-Bus object path for a track id.
// Ids are base32 encoded to stay within the object path alphabet.
func TrackObjectPath(id string) dbus.ObjectPath {
	if id == "" {
		return dbus.ObjectPath(noTrackObjectPath)
	}
	enc := base32.StdEncoding.WithPadding('0').EncodeToString([]byte(id))
	return dbus.ObjectPath(trackIDPrefix + enc)
}
