package xiami

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "query removed",
			input:    "http://www.xiami.com/song/playlist/id/1/type/9/cat/json?_ksTS=1500000000000_123&callback=jsonp",
			expected: "http://www.xiami.com/song/playlist/id/1/type/9/cat/json",
		},
		{
			name:     "no query",
			input:    "http://www.xiami.com/song/playlist/id/1",
			expected: "http://www.xiami.com/song/playlist/id/1",
		},
		{
			name:     "empty query marker",
			input:    "http://www.xiami.com/song/playlist/id/1?",
			expected: "http://www.xiami.com/song/playlist/id/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripQuery(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStripQuery_Invalid(t *testing.T) {
	_, err := StripQuery("http://[::1")
	assert.Error(t, err)
}

func TestFetchPlaylist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/song/playlist/id/1", r.URL.Path)
		assert.Equal(t, "member_auth=abc;user=42", r.Header.Get("Cookie"))
		assert.Equal(t, PlayerURL, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"status": true,
			"data": {
				"trackList": [
					{"songId": "1", "songName": "A", "artist_name": "X", "album_name": "Y"},
					{"songId": 2, "songName": "B", "artist_name": "Z", "album_name": "W", "lyric": "http://lrc/2"}
				]
			}
		}`)
	}))
	defer server.Close()

	client := New(server.Client())
	p, err := client.FetchPlaylist(context.Background(), server.URL+"/song/playlist/id/1", "member_auth=abc;user=42")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, p.TrackIDs())
	assert.Equal(t, "A", p.Tracks[0].Name)
	assert.Contains(t, p.Tracks[1].Extra, "lyric")
}

func TestFetchPlaylist_NoCookieHeaderWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Cookie"]
		assert.False(t, present)
		fmt.Fprint(w, `{"data":{"trackList":[]}}`)
	}))
	defer server.Close()

	p, err := New(nil).FetchPlaylist(context.Background(), server.URL, "")
	require.NoError(t, err)
	assert.Empty(t, p.Tracks)
}

func TestFetchPlaylist_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		errPart string
	}{
		{
			name:    "non-2xx status",
			status:  http.StatusForbidden,
			body:    `{"data":{"trackList":[]}}`,
			errPart: "unexpected status 403",
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `jsonp({"data":{}})`,
			errPart: "failed to parse playlist response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := New(server.Client()).FetchPlaylist(context.Background(), server.URL, "a=b")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestFetchPlaylist_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	_, err := New(nil).FetchPlaylist(context.Background(), target, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send request")
}
