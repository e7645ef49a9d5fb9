//go:build windows

package ipc

import (
	"net"
	"os"
	"os/user"
	"regexp"
	"time"

	"github.com/Microsoft/go-winio"
)

// SocketEnv overrides the pipe name.
const SocketEnv = "XIAMIBOX_SOCKET"

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SocketPath returns the named pipe for the current user.
func SocketPath() string {
	if p := os.Getenv(SocketEnv); p != "" {
		return p
	}
	name := `\\.\pipe\xiamibox`
	if u, err := user.Current(); err == nil {
		name += nonAlnum.ReplaceAllString(u.Username, "")
	}
	return name
}

// Dial connects to the pipe.
func Dial() (net.Conn, error) {
	timeout := 2 * time.Second
	return winio.DialPipe(SocketPath(), &timeout)
}

// Listen creates the pipe.
func Listen() (net.Listener, error) {
	return winio.ListenPipe(SocketPath(), nil)
}

// DestroyConn is a no-op; named pipes go away with their listener.
func DestroyConn() error {
	return nil
}
