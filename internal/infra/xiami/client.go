// Package xiami provides the endpoints of the xiami web player and a client
// that replays its playlist calls.
package xiami

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/domain/playlist"
)

// Fixed endpoints of the player page.
const (
	Origin      = "http://www.xiami.com"
	PlayerURL   = Origin + "/play"
	PlaylistURL = Origin + "/song/playlist"
	GetSongURL  = Origin + "/song/gethqsong"
)

// userAgent is sent on replayed requests; the player page is served to
// desktop browsers only.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Client fetches playlists with the player's session cookie.
type Client struct {
	httpClient *http.Client
}

// New creates a new xiami client.
// No timeout is set on the HTTP client; requests live as long as their context.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// StripQuery returns the URL without its query component.
func StripQuery(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", rawURL)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	return u.String(), nil
}

// FetchPlaylist performs one GET to playlistURL with the given Cookie header
// and parses the {data:{trackList:[...]}} body.
func (c *Client) FetchPlaylist(ctx context.Context, playlistURL, cookieHeader string) (*playlist.Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", PlayerURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("xiami: unexpected status %d from %s", resp.StatusCode, playlistURL)
	}

	p, err := playlist.Parse(body)
	if err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("xiami: fetched playlist %s (tracks: %d)", playlistURL, len(p.Tracks))
	return p, nil
}
