// Package intercept routes the player page's network responses to the
// handlers that mirror playlist state and detect track changes.
package intercept

import (
	"context"
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/app/events"
)

// Handler reacts to one matching response URL.
type Handler interface {
	Handle(ctx context.Context, rawURL string) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, rawURL string) error

// Handle calls f(ctx, rawURL).
func (f HandlerFunc) Handle(ctx context.Context, rawURL string) error {
	return f(ctx, rawURL)
}

// Route binds a URL prefix to a handler.
type Route struct {
	Name    string
	Prefix  string
	Handler Handler
}

// Matches reports whether the route applies to the URL.
func (r Route) Matches(rawURL string) bool {
	return strings.HasPrefix(rawURL, r.Prefix)
}

// Dispatcher checks every response against its routes and runs the
// matching handlers concurrently. Routes are independent: a URL matching
// several prefixes fires each of them.
type Dispatcher struct {
	routes   []Route
	inflight sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given routes.
func NewDispatcher(routes ...Route) *Dispatcher {
	return &Dispatcher{routes: routes}
}

// Routes returns all routes of the dispatcher.
func (d *Dispatcher) Routes() []Route {
	return d.routes
}

// Dispatch starts the handler of every route matching the event.
// It returns the number of handlers started. Non-matching URLs are ignored.
//
// Handlers do not inherit ctx's cancellation: an in-flight synchronization
// keeps running when the window hides or the dispatcher stops.
func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Response) int {
	started := 0
	for _, r := range d.routes {
		if !r.Matches(ev.URL) {
			continue
		}
		started++
		d.inflight.Add(1)
		go d.run(context.WithoutCancel(ctx), r, ev.URL)
	}
	return started
}

func (d *Dispatcher) run(ctx context.Context, r Route, rawURL string) {
	defer d.inflight.Done()

	zlog.Debug().Msgf("intercept: %s matched %s", r.Name, rawURL)
	if err := r.Handler.Handle(ctx, rawURL); err != nil {
		zlog.Error().Err(err).Msgf("intercept: %s handler failed for %s", r.Name, rawURL)
	}
}

// Run dispatches events from the stream until ctx is done or the stream
// is closed. Once ctx is done no further handler is started, even for
// events still buffered in the stream, so a Wait after Run returns covers
// every handler Run started.
func (d *Dispatcher) Run(ctx context.Context, stream <-chan events.Response) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// Wait blocks until every started handler has returned.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}
