// Package ipc is the local control surface of a running player: HTTP over
// a per-user unix socket (a named pipe on Windows). It also serves as the
// single-instance guard.
package ipc

import "github.com/osa030/xiamibox/internal/domain/track"

const (
	PingPath      = "/ping"
	StatusPath    = "/status"
	PlayPath      = "/transport/play"
	PausePath     = "/transport/pause"
	PlayPausePath = "/transport/playpause"
	NextPath      = "/transport/next"
	PreviousPath  = "/transport/previous"
	ShowPath      = "/window/show"
	HidePath      = "/window/hide"
	ClosePath     = "/window/close" // user close: hides the window
	QuitPath      = "/window/quit"
)

// Response is the body of every command reply. Error is empty on success.
type Response struct {
	Error string `json:"error"`
}

// Status describes the running player.
type Status struct {
	Visible bool          `json:"visible"`
	State   string        `json:"state"`
	Track   *track.Record `json:"track,omitempty"`
}
