package intercept

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/xiamibox/internal/app/events"
)

const (
	playlistPrefix = "http://www.xiami.com/song/playlist"
	getSongPrefix  = "http://www.xiami.com/song/gethqsong"
)

// recorder collects the URLs a handler was called with.
type recorder struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (r *recorder) Handle(_ context.Context, rawURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, rawURL)
	return r.err
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

func newTestDispatcher() (*Dispatcher, *recorder, *recorder) {
	syncer, notify := &recorder{}, &recorder{}
	d := NewDispatcher(
		Route{Name: "playlist", Prefix: playlistPrefix, Handler: syncer},
		Route{Name: "get-song", Prefix: getSongPrefix, Handler: notify},
	)
	return d, syncer, notify
}

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantStarted  int
		wantPlaylist int
		wantGetSong  int
	}{
		{
			name:         "playlist endpoint",
			url:          playlistPrefix + "/id/1/type/9?_ksTS=1500000000000_123&callback=jsonp",
			wantStarted:  1,
			wantPlaylist: 1,
		},
		{
			name:        "get-song endpoint",
			url:         getSongPrefix + "/sid/1769834090",
			wantStarted: 1,
			wantGetSong: 1,
		},
		{
			name: "player page",
			url:  "http://www.xiami.com/play?ids=/song/playlist/id/1",
		},
		{
			name: "static asset",
			url:  "http://g.alicdn.com/music/music-player/1.0.0/app.js",
		},
		{
			name: "https variant does not match",
			url:  "https://www.xiami.com/song/playlist/id/1",
		},
		{
			name: "empty url",
			url:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, playlist, getSong := newTestDispatcher()

			started := d.Dispatch(context.Background(), events.Response{URL: tt.url, Status: 200})
			d.Wait()

			assert.Equal(t, tt.wantStarted, started)
			assert.Len(t, playlist.calls(), tt.wantPlaylist)
			assert.Len(t, getSong.calls(), tt.wantGetSong)
		})
	}
}

func TestDispatcher_OverlappingPrefixesBothFire(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	d := NewDispatcher(
		Route{Name: "broad", Prefix: "http://www.xiami.com/song/", Handler: first},
		Route{Name: "narrow", Prefix: playlistPrefix, Handler: second},
	)

	started := d.Dispatch(context.Background(), events.Response{URL: playlistPrefix + "/id/1"})
	d.Wait()

	assert.Equal(t, 2, started)
	assert.Len(t, first.calls(), 1)
	assert.Len(t, second.calls(), 1)
}

func TestDispatcher_HandlerErrorDoesNotAffectOthers(t *testing.T) {
	failing := &recorder{err: errors.New("store read failed")}
	ok := &recorder{}
	d := NewDispatcher(
		Route{Name: "get-song", Prefix: getSongPrefix, Handler: failing},
		Route{Name: "playlist", Prefix: playlistPrefix, Handler: ok},
	)

	d.Dispatch(context.Background(), events.Response{URL: getSongPrefix + "/sid/1"})
	d.Dispatch(context.Background(), events.Response{URL: playlistPrefix + "/id/1"})
	d.Wait()

	assert.Len(t, failing.calls(), 1)
	assert.Len(t, ok.calls(), 1)
}

func TestDispatcher_HandlersRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	blocking := HandlerFunc(func(ctx context.Context, rawURL string) error {
		entered <- struct{}{}
		<-release
		return nil
	})
	d := NewDispatcher(Route{Name: "playlist", Prefix: playlistPrefix, Handler: blocking})

	d.Dispatch(context.Background(), events.Response{URL: playlistPrefix + "/id/1"})
	d.Dispatch(context.Background(), events.Response{URL: playlistPrefix + "/id/2"})

	for i := 0; i < 2; i++ {
		select {
		case <-entered:
		case <-time.After(time.Second):
			t.Fatal("handlers should overlap in time")
		}
	}
	close(release)
	d.Wait()
}

func TestDispatcher_HandlerOutlivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var handlerErr error
	done := make(chan struct{})
	d := NewDispatcher(Route{
		Name:   "playlist",
		Prefix: playlistPrefix,
		Handler: HandlerFunc(func(hctx context.Context, rawURL string) error {
			cancel()
			handlerErr = hctx.Err()
			close(done)
			return nil
		}),
	})

	d.Dispatch(ctx, events.Response{URL: playlistPrefix + "/id/1"})
	<-done
	d.Wait()

	assert.NoError(t, handlerErr, "handler context must not be cancelled with the dispatcher")
}

func TestDispatcher_Run(t *testing.T) {
	d, playlist, getSong := newTestDispatcher()
	hub := events.NewHub(8)
	_, stream := hub.Subscribe()

	finished := make(chan struct{})
	go func() {
		d.Run(context.Background(), stream)
		close(finished)
	}()

	hub.Publish(events.Response{URL: playlistPrefix + "/id/1"})
	hub.Publish(events.Response{URL: "http://www.xiami.com/index"})
	hub.Publish(events.Response{URL: getSongPrefix + "/sid/2"})
	hub.Close()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run should return when the stream closes")
	}
	d.Wait()

	require.Len(t, playlist.calls(), 1)
	require.Len(t, getSong.calls(), 1)
	assert.Equal(t, getSongPrefix+"/sid/2", getSong.calls()[0])
}

func TestDispatcher_RunStopsOnCancelledContext(t *testing.T) {
	d, playlist, _ := newTestDispatcher()

	stream := make(chan events.Response, 64)
	for i := 0; i < cap(stream); i++ {
		stream <- events.Response{URL: playlistPrefix + "/id/1"}
	}
	close(stream)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Run(ctx, stream)
	d.Wait()
	assert.Empty(t, playlist.calls())
}
