// Package shell wires the player window, the response pipeline and the
// control surfaces into one application lifecycle.
package shell

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/app/events"
	"github.com/osa030/xiamibox/internal/app/intercept"
	"github.com/osa030/xiamibox/internal/app/player"
	"github.com/osa030/xiamibox/internal/app/playlistsync"
	"github.com/osa030/xiamibox/internal/app/trackchange"
	"github.com/osa030/xiamibox/internal/infra/cookie"
	"github.com/osa030/xiamibox/internal/infra/notify"
	"github.com/osa030/xiamibox/internal/infra/store"
	"github.com/osa030/xiamibox/internal/infra/xiami"
)

// closeTimeout bounds the shutdown triggered by losing the window.
const closeTimeout = 5 * time.Second

// ErrNotRunning is returned by Start once the shell has shut down.
var ErrNotRunning = errors.New("shell is not running")

// Host is the browser window hosting the player page.
type Host interface {
	player.Window
	player.Page
	cookie.Source
	Navigate(ctx context.Context, url string) error
	Done() <-chan struct{}
}

// Media receives player changes for external surfaces such as MPRIS.
type Media interface {
	PlaybackChanged()
	TrackChanged()
}

// Deps are the collaborators of the shell.
type Deps struct {
	Host    Host
	Hub     *events.Hub
	Store   store.Store
	Sink    notify.Sink
	Fetcher playlistsync.Fetcher
	Icon    string
	// StartURL is loaded into the window by Start once the pipeline
	// listens. Empty leaves the current page.
	StartURL string
}

// Endpoints are the URL prefixes and cookie origin the pipeline matches.
type Endpoints struct {
	Origin         string
	PlaylistPrefix string
	GetSongPrefix  string
}

// DefaultEndpoints returns the xiami player endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Origin:         xiami.Origin,
		PlaylistPrefix: xiami.PlaylistURL,
		GetSongPrefix:  xiami.GetSongURL,
	}
}

// Manager owns the window, the event hub and the dispatcher for one run.
type Manager struct {
	mu sync.Mutex

	host       Host
	hub        *events.Hub
	dispatcher *intercept.Dispatcher
	controller *player.Controller
	media      Media
	startURL   string

	subID   string
	started bool
	runDone chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager builds the pipeline: playlist responses feed the synchronizer,
// get-song responses feed the notifier, and notified tracks become the
// controller's now-playing track.
func NewManager(deps Deps, ep Endpoints) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	controller := player.NewController(deps.Host, deps.Host)
	syncer := playlistsync.New(deps.Host, deps.Fetcher, deps.Store, ep.Origin)
	notifier := trackchange.New(deps.Store, deps.Sink, deps.Icon)
	notifier.OnTrackChange(controller.SetNowPlaying)

	dispatcher := intercept.NewDispatcher(
		intercept.Route{Name: "playlist", Prefix: ep.PlaylistPrefix, Handler: syncer},
		intercept.Route{Name: "gethqsong", Prefix: ep.GetSongPrefix, Handler: notifier},
	)

	return &Manager{
		host:       deps.Host,
		hub:        deps.Hub,
		dispatcher: dispatcher,
		controller: controller,
		startURL:   deps.StartURL,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Controller returns the transport controller.
func (m *Manager) Controller() *player.Controller {
	return m.controller
}

// SetMedia registers the surface told about playback and track changes.
// Must be called before Start.
func (m *Manager) SetMedia(media Media) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media = media
}

// Start subscribes the dispatcher to the hub, begins watching the window
// and then loads the start URL, so the page's first responses already
// reach the pipeline.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return ErrNotRunning
	default:
	}
	if m.started {
		m.mu.Unlock()
		return errors.New("shell already started")
	}
	m.started = true

	id, stream := m.hub.Subscribe()
	m.subID = id
	m.runDone = make(chan struct{})

	go func() {
		defer close(m.runDone)
		m.dispatcher.Run(m.ctx, stream)
	}()
	go m.playerLoop()
	go m.watchHost()
	m.mu.Unlock()

	zlog.Info().Msgf("shell: started, routes=%d", len(m.dispatcher.Routes()))

	if m.startURL == "" {
		return nil
	}
	if err := m.host.Navigate(ctx, m.startURL); err != nil {
		return errors.Wrap(err, "failed to load player page")
	}
	return nil
}

// Done is closed once the shell has shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// watchHost ends the run when the window is destroyed from outside.
func (m *Manager) watchHost() {
	select {
	case <-m.ctx.Done():
	case <-m.host.Done():
		zlog.Info().Msg("shell: player window is gone, shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := m.Close(ctx); err != nil {
			zlog.Warn().Err(err).Msg("shell: shutdown after window loss failed")
		}
	}
}

// playerLoop forwards player events to the media surface.
func (m *Manager) playerLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("shell: player loop panicked: %v", r)
			go m.playerLoop()
		}
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.controller.Events():
			m.handlePlayerEvent(ev)
		}
	}
}

func (m *Manager) handlePlayerEvent(ev player.Event) {
	zlog.Debug().Msgf("shell: player event: type=%s state=%s visible=%t", ev.Type, ev.State, ev.Visible)

	m.mu.Lock()
	media := m.media
	m.mu.Unlock()
	if media == nil {
		return
	}

	switch ev.Type {
	case player.EventStateChanged:
		media.PlaybackChanged()
	case player.EventTrackChanged:
		media.TrackChanged()
		media.PlaybackChanged()
	}
}

// Close tears down the window and waits for in-flight handlers until ctx
// expires. It is safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		zlog.Info().Msg("shell: closing")

		m.mu.Lock()
		if m.subID != "" {
			m.hub.Unsubscribe(m.subID)
		}
		runDone := m.runDone
		m.mu.Unlock()

		if cerr := m.controller.Close(ctx); cerr != nil && !errors.Is(cerr, player.ErrClosed) {
			err = cerr
		}
		m.cancel()

		// Run starts no handler after it returns; only then is Wait final.
		waited := make(chan struct{})
		go func() {
			if runDone != nil {
				<-runDone
			}
			m.dispatcher.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			zlog.Warn().Msg("shell: handlers still running at shutdown")
		}

		close(m.done)
		zlog.Info().Msg("shell: closed")
	})
	return err
}
