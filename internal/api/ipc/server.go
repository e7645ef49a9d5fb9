package ipc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/app/player"
	"github.com/osa030/xiamibox/internal/domain/track"
)

// Controller is the player surface exposed over IPC.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	RequestClose(ctx context.Context) error
	IsVisible() bool
	State() player.State
	NowPlaying() track.Record
}

type serverImpl struct {
	c    Controller
	quit func()
}

// NewHandler returns the HTTP handler serving the IPC paths.
// quit is called asynchronously on QuitPath.
func NewHandler(c Controller, quit func()) http.Handler {
	s := &serverImpl{c: c, quit: quit}
	return s.createHandler()
}

func (s *serverImpl) createHandler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeErr(w, http.StatusNotFound, errors.Newf("unknown path %s", r.URL.Path))
	})
	m.HandleFunc(PingPath, s.simple(func(context.Context) error { return nil }))
	m.HandleFunc(StatusPath, s.handleStatus)
	m.HandleFunc(PlayPath, s.simple(s.c.Play))
	m.HandleFunc(PausePath, s.simple(s.c.Pause))
	m.HandleFunc(PlayPausePath, s.simple(s.c.PlayPause))
	m.HandleFunc(NextPath, s.simple(s.c.Next))
	m.HandleFunc(PreviousPath, s.simple(s.c.Previous))
	m.HandleFunc(ShowPath, s.simple(s.c.Show))
	m.HandleFunc(HidePath, s.simple(s.c.Hide))
	m.HandleFunc(ClosePath, s.simple(s.c.RequestClose))
	m.HandleFunc(QuitPath, s.simple(func(context.Context) error {
		if s.quit == nil {
			return errors.New("quit is not available")
		}
		go s.quit()
		return nil
	}))
	return m
}

func (s *serverImpl) simple(f func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zlog.Debug().Msgf("ipc: %s %s", r.Method, r.URL.Path)
		if err := f(r.Context()); err != nil {
			s.writeErr(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, Response{})
	}
}

func (s *serverImpl) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		Visible: s.c.IsVisible(),
		State:   s.c.State().String(),
	}
	if rec := s.c.NowPlaying(); !rec.IsEmpty() {
		st.Track = &rec
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *serverImpl) writeErr(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, Response{Error: err.Error()})
}

func (s *serverImpl) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("ipc: failed to write response")
	}
}

// Server serves the IPC handler on the platform socket.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Serve starts listening on the platform socket.
func Serve(c Controller, quit func()) (*Server, error) {
	ln, err := Listen()
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen on ipc socket")
	}
	s := &Server{
		srv: &http.Server{
			Handler:           NewHandler(c, quit),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln: ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Msg("ipc: server stopped")
		}
	}()
	zlog.Info().Msgf("ipc: listening on %s", ln.Addr())
	return s, nil
}

// Shutdown stops the server and removes the socket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if rerr := DestroyConn(); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		zlog.Debug().Err(rerr).Msg("ipc: failed to remove socket")
	}
	if err != nil {
		return errors.Wrap(err, "failed to shut down ipc server")
	}
	return nil
}
