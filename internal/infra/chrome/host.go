package chrome

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/app/events"
)

// Host is the player window: one page target and the browser window that
// shows it. It publishes every network response the page receives and
// serves the page's cookie session, scripted evaluation and window state.
type Host struct {
	exec      cdp.Executor
	targetID  target.ID
	publisher events.Publisher
	closer    func(ctx context.Context) error

	mu       sync.Mutex
	windowID browser.WindowID
	requests map[network.RequestID]string // first URL of each pending request

	done      chan struct{}
	closeOnce sync.Once

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewHost creates a host running commands for targetID through exec.
func NewHost(exec cdp.Executor, targetID target.ID, pub events.Publisher) *Host {
	h := &Host{
		exec:      exec,
		targetID:  targetID,
		publisher: pub,
		requests:  make(map[network.RequestID]string),
		done:      make(chan struct{}),
	}
	h.closer = func(ctx context.Context) error {
		return browser.Close().Do(h.with(ctx))
	}
	return h
}

func (h *Host) with(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, h.exec)
}

// Enable turns on network events for the page and resolves its window.
func (h *Host) Enable(ctx context.Context) error {
	ctx = h.with(ctx)
	if err := network.Enable().Do(ctx); err != nil {
		return errors.Wrap(err, "failed to enable network events")
	}
	windowID, _, err := browser.GetWindowForTarget().WithTargetID(h.targetID).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to resolve window")
	}

	h.mu.Lock()
	h.windowID = windowID
	h.mu.Unlock()
	return nil
}

// handleEvent receives target and browser events. It must not block.
func (h *Host) handleEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return
		}
		// Redirects reuse the request id; the first URL is the one the
		// page asked for.
		h.mu.Lock()
		if _, ok := h.requests[e.RequestID]; !ok {
			h.requests[e.RequestID] = e.Request.URL
		}
		h.mu.Unlock()

	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		h.mu.Lock()
		url, ok := h.requests[e.RequestID]
		delete(h.requests, e.RequestID)
		h.mu.Unlock()
		if !ok {
			url = e.Response.URL
		}
		h.publisher.Publish(events.Response{
			URL:        url,
			Status:     int(e.Response.Status),
			ObservedAt: time.Now(),
		})

	case *network.EventLoadingFailed:
		h.mu.Lock()
		delete(h.requests, e.RequestID)
		h.mu.Unlock()

	case *target.EventTargetDestroyed:
		if e.TargetID == h.targetID {
			zlog.Info().Msg("chrome: player window destroyed")
			h.markDone()
		}
	}
}

func (h *Host) markDone() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Done is closed when the window is gone or the connection ends.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Navigate loads url in the page.
func (h *Host) Navigate(ctx context.Context, url string) error {
	var res page.NavigateReturns
	if err := h.exec.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res); err != nil {
		return errors.Wrapf(err, "failed to navigate to %s", url)
	}
	if res.ErrorText != "" {
		return errors.Newf("navigation to %s failed: %s", url, res.ErrorText)
	}
	zlog.Info().Msgf("chrome: loading %s", url)
	return nil
}

// Evaluate runs script in the page. A thrown exception is an error.
// A string result is returned; any other result yields "".
func (h *Host) Evaluate(ctx context.Context, script string) (string, error) {
	res, exc, err := runtime.Evaluate(script).
		WithReturnByValue(true).
		WithUserGesture(true).
		Do(h.with(ctx))
	if err != nil {
		return "", errors.Wrap(err, "failed to evaluate script")
	}
	if exc != nil {
		msg := exc.Text
		if exc.Exception != nil && exc.Exception.Description != "" {
			msg = exc.Exception.Description
		}
		return "", errors.Newf("script threw: %s", msg)
	}
	if res == nil || len(res.Value) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal([]byte(res.Value), &s); err != nil {
		return "", nil
	}
	return s, nil
}

// Cookies returns the page session's cookies for origin.
func (h *Host) Cookies(ctx context.Context, origin string) ([]*http.Cookie, error) {
	list, err := network.GetCookies().WithUrls([]string{origin}).Do(h.with(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cookies for %s", origin)
	}

	cookies := make([]*http.Cookie, 0, len(list))
	for _, c := range list {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, hc)
	}
	return cookies, nil
}

func (h *Host) setWindowState(ctx context.Context, state browser.WindowState) error {
	h.mu.Lock()
	windowID := h.windowID
	h.mu.Unlock()
	return browser.SetWindowBounds(windowID, &browser.Bounds{WindowState: state}).Do(h.with(ctx))
}

// Show restores the window.
func (h *Host) Show(ctx context.Context) error {
	if err := h.setWindowState(ctx, browser.WindowStateNormal); err != nil {
		return errors.Wrap(err, "failed to show window")
	}
	return nil
}

// Hide minimises the window. The page keeps running.
func (h *Host) Hide(ctx context.Context) error {
	if err := h.setWindowState(ctx, browser.WindowStateMinimized); err != nil {
		return errors.Wrap(err, "failed to hide window")
	}
	return nil
}

// Focus brings the page to the front.
func (h *Host) Focus(ctx context.Context) error {
	if err := page.BringToFront().Do(h.with(ctx)); err != nil {
		return errors.Wrap(err, "failed to focus window")
	}
	return nil
}

// Close shuts the browser down. Later calls return the first result.
func (h *Host) Close(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		if err := h.closer(ctx); err != nil {
			h.shutdownErr = errors.Wrap(err, "failed to close browser")
		}
		h.markDone()
	})
	return h.shutdownErr
}
