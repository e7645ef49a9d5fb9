//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
)

// SocketEnv overrides the socket location.
const SocketEnv = "XIAMIBOX_SOCKET"

// SocketPath returns the socket location:
//   - $XIAMIBOX_SOCKET when set
//   - macOS: ~/Library/Caches/xiamibox/xiamibox.sock
//   - elsewhere: $XDG_RUNTIME_DIR/xiamibox.sock
//   - fallback: /tmp/xiamibox-<uid>.sock
func SocketPath() string {
	if p := os.Getenv(SocketEnv); p != "" {
		return p
	}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Caches", "xiamibox", "xiamibox.sock")
		}
	} else if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "xiamibox.sock")
	}
	if u, err := user.Current(); err == nil {
		return fmt.Sprintf("/tmp/xiamibox-%s.sock", u.Uid)
	}
	return "/tmp/xiamibox.sock"
}

// Dial connects to the socket.
func Dial() (net.Conn, error) {
	return net.DialTimeout("unix", SocketPath(), 2*time.Second)
}

// Listen creates the socket. A leftover socket file that nobody answers on
// is removed first.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create socket directory")
	}
	if _, err := os.Stat(path); err == nil {
		if conn, err := Dial(); err == nil {
			conn.Close()
			return nil, errors.Newf("socket %s is in use", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, errors.Wrap(err, "failed to remove stale socket")
		}
	}
	return net.Listen("unix", path)
}

// DestroyConn removes the socket file.
func DestroyConn() error {
	return os.Remove(SocketPath())
}
