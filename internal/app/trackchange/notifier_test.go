package trackchange

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/xiamibox/internal/domain/track"
	"github.com/osa030/xiamibox/internal/infra/notify"
	"github.com/osa030/xiamibox/internal/infra/store"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (s *recordingSink) Notify(_ context.Context, n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type failingReader struct{}

func (failingReader) Get(context.Context, string) (track.Record, error) {
	return track.Record{}, errors.New("database is locked")
}

func TestTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "final segment",
			input:    "http://www.xiami.com/song/gethqsong/sid/42",
			expected: "42",
		},
		{
			name:     "query ignored",
			input:    "http://www.xiami.com/song/gethqsong/sid/42?_ksTS=1500000000000_1",
			expected: "42",
		},
		{
			name:     "trailing slash",
			input:    "http://www.xiami.com/song/gethqsong/sid/42/",
			expected: "42",
		},
		{
			name:     "no path",
			input:    "http://www.xiami.com",
			expected: "",
		},
		{
			name:    "invalid url",
			input:   "http://www.xiami.com/%zz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrackID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestHandle_UnknownTrackDoesNothing(t *testing.T) {
	sink := &recordingSink{}
	n := New(store.NewMemory(), sink, "icon.png")

	var observed int
	n.OnTrackChange(func(track.Record) { observed++ })

	require.NoError(t, n.Handle(context.Background(), "http://www.xiami.com/song/gethqsong/sid/42"))
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 0, observed)
}

func TestHandle_KnownTrackNotifies(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set(context.Background(), "42", track.Record{Name: "A", Artist: "X", Album: "Y"}))

	sink := &recordingSink{}
	n := New(mem, sink, "/opt/xiamibox/icon.png")

	var observed []track.Record
	n.OnTrackChange(func(rec track.Record) { observed = append(observed, rec) })

	require.NoError(t, n.Handle(context.Background(), "http://www.xiami.com/song/gethqsong/sid/42"))

	require.Len(t, sink.sent, 1)
	got := sink.sent[0]
	assert.Contains(t, got.Title, "A")
	assert.Contains(t, got.Message, "X")
	assert.Contains(t, got.Message, "Y")
	assert.Equal(t, "Track: A", got.Title)
	assert.Equal(t, "Artist: X\nAlbum: Y", got.Message)
	assert.Equal(t, "/opt/xiamibox/icon.png", got.Icon)

	require.Len(t, observed, 1)
	assert.Equal(t, "42", observed[0].ID)
	assert.Equal(t, "A", observed[0].Name)
}

func TestHandle_NoDeduplication(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set(context.Background(), "42", track.Record{ID: "42", Name: "A"}))

	sink := &recordingSink{}
	n := New(mem, sink, "")

	for i := 0; i < 3; i++ {
		require.NoError(t, n.Handle(context.Background(), "http://www.xiami.com/song/gethqsong/sid/42"))
	}
	assert.Equal(t, 3, sink.count())
}

func TestHandle_LookupErrorIsReturned(t *testing.T) {
	sink := &recordingSink{}
	n := New(failingReader{}, sink, "")

	err := n.Handle(context.Background(), "http://www.xiami.com/song/gethqsong/sid/42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, 0, sink.count())
}

func TestHandle_NoTrackID(t *testing.T) {
	sink := &recordingSink{}
	n := New(failingReader{}, sink, "")

	assert.NoError(t, n.Handle(context.Background(), "http://www.xiami.com"))
	assert.Equal(t, 0, sink.count())
}
