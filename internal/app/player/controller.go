package player

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/domain/track"
)

// ErrClosed is returned by operations on a closed window.
var ErrClosed = errors.New("player window is closed")

// Window is the native window hosting the player page.
type Window interface {
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	Focus(ctx context.Context) error
	Close(ctx context.Context) error
}

// Page runs scripts in the player page. Evaluate returns the script's
// string result.
type Page interface {
	Evaluate(ctx context.Context, script string) (string, error)
}

// Controller owns the player window for the whole run. A user close only
// hides the window; Close is the one way to tear it down.
type Controller struct {
	mu sync.RWMutex
	// winMu serializes window operations with the visibility they set.
	winMu sync.Mutex

	window Window
	page   Page

	visible    bool
	closed     bool
	state      State
	nowPlaying track.Record

	eventCh chan Event
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewController creates a controller for a window that is already shown.
func NewController(window Window, page Page) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		window:  window,
		page:    page,
		visible: true,
		state:   StateUnknown,
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Show restores and focuses the window.
func (c *Controller) Show(ctx context.Context) error {
	c.winMu.Lock()
	defer c.winMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if err := c.window.Show(ctx); err != nil {
		return err
	}
	if err := c.window.Focus(ctx); err != nil {
		zlog.Warn().Err(err).Msg("player: failed to focus window")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = true
	c.sendEventLocked(EventShown)
	zlog.Info().Msg("player: window shown")
	return nil
}

// Hide minimises the window without destroying it.
func (c *Controller) Hide(ctx context.Context) error {
	c.winMu.Lock()
	defer c.winMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if err := c.window.Hide(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = false
	c.sendEventLocked(EventHidden)
	zlog.Info().Msg("player: window hidden")
	return nil
}

// IsVisible reports whether the window is shown.
func (c *Controller) IsVisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visible && !c.closed
}

// RequestClose handles a user close: a visible window is hidden instead.
func (c *Controller) RequestClose(ctx context.Context) error {
	if !c.IsVisible() {
		return nil
	}
	zlog.Debug().Msg("player: close requested, hiding instead")
	return c.Hide(ctx)
}

// Close tears the window down. Later calls return ErrClosed.
func (c *Controller) Close(ctx context.Context) error {
	c.winMu.Lock()
	defer c.winMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.visible = false
	c.sendEventLocked(EventClosed)
	c.mu.Unlock()

	err := c.window.Close(ctx)
	c.cancel()
	if err != nil {
		return errors.Wrap(err, "failed to close window")
	}
	zlog.Info().Msg("player: window closed")
	return nil
}

// Play clicks the play button.
func (c *Controller) Play(ctx context.Context) error {
	return c.transport(ctx, "play", ClickScript(PlayButton))
}

// Pause clicks the pause button.
func (c *Controller) Pause(ctx context.Context) error {
	return c.transport(ctx, "pause", ClickScript(PauseButton))
}

// PlayPause clicks pause when the page shows it and play otherwise.
func (c *Controller) PlayPause(ctx context.Context) error {
	return c.transport(ctx, "playpause", PlayPauseScript())
}

// Next clicks the next button.
func (c *Controller) Next(ctx context.Context) error {
	return c.transport(ctx, "next", ClickScript(NextButton))
}

// Previous clicks the previous button.
func (c *Controller) Previous(ctx context.Context) error {
	return c.transport(ctx, "previous", ClickScript(PreviousButton))
}

// transport runs a click script. The state follows the button the page
// actually clicked; a missing button leaves it unchanged.
func (c *Controller) transport(ctx context.Context, name, script string) error {
	if c.isClosed() {
		return ErrClosed
	}
	clicked, err := c.page.Evaluate(ctx, script)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s", name)
	}
	zlog.Debug().Msgf("player: %s sent (clicked=%q)", name, clicked)

	s, ok := stateAfterClick(clicked)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s != c.state {
		c.state = s
		c.sendEventLocked(EventStateChanged)
	}
	return nil
}

// SetNowPlaying records the track the page switched to.
func (c *Controller) SetNowPlaying(rec track.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowPlaying = rec
	c.state = StatePlaying
	c.sendEventLocked(EventTrackChanged)
}

// NowPlaying returns the last observed track.
func (c *Controller) NowPlaying() track.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nowPlaying
}

// State returns the best-known playback state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType) {
	e := Event{
		Type:    t,
		State:   c.state,
		Visible: c.visible && !c.closed,
		Track:   c.nowPlaying,
	}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		zlog.Debug().Msgf("player: event channel full, dropping %s", t)
	}
}
