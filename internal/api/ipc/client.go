package ipc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrPingFail is returned by Connect when the socket answers but the
// player does not respond to a ping.
var ErrPingFail = errors.New("ping failed")

// Client talks to a running player.
type Client struct {
	httpC   http.Client
	baseURL string
}

// Connect dials the platform socket and pings the player.
func Connect(ctx context.Context) (*Client, error) {
	return connect(ctx, func(context.Context) (net.Conn, error) { return Dial() })
}

func connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (*Client, error) {
	c := &Client{
		httpC: http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dial(ctx)
				},
			},
		},
		baseURL: "http://xiamibox",
	}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewClientForURL returns a client for an HTTP base URL. Used in tests.
func NewClientForURL(baseURL string, httpC *http.Client) *Client {
	c := &Client{baseURL: baseURL}
	if httpC != nil {
		c.httpC = *httpC
	}
	return c
}

// Ping checks that the player answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, PingPath, nil); err != nil {
		return errors.Mark(errors.Wrap(err, "ipc"), ErrPingFail)
	}
	return nil
}

// Status returns the player's visibility, state and current track.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, StatusPath, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Play(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, PlayPath, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, PausePath, nil)
}

func (c *Client) PlayPause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, PlayPausePath, nil)
}

func (c *Client) Next(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, NextPath, nil)
}

func (c *Client) Previous(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, PreviousPath, nil)
}

func (c *Client) Show(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, ShowPath, nil)
}

func (c *Client) Hide(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, HidePath, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, ClosePath, nil)
}

func (c *Client) Quit(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, QuitPath, nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	resp, err := c.httpC.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var r Response
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil || r.Error == "" {
			return errors.Newf("%s: unexpected status %d", path, resp.StatusCode)
		}
		return errors.Newf("%s: %s", path, r.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}
