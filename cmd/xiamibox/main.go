// Package main provides the xiamibox desktop player entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/api/ipc"
	"github.com/osa030/xiamibox/internal/app/events"
	"github.com/osa030/xiamibox/internal/app/playlistsync"
	"github.com/osa030/xiamibox/internal/app/shell"
	"github.com/osa030/xiamibox/internal/infra/chrome"
	"github.com/osa030/xiamibox/internal/infra/config"
	"github.com/osa030/xiamibox/internal/infra/cookie"
	"github.com/osa030/xiamibox/internal/infra/logger"
	"github.com/osa030/xiamibox/internal/infra/mpris"
	"github.com/osa030/xiamibox/internal/infra/notify"
	"github.com/osa030/xiamibox/internal/infra/store"
	"github.com/osa030/xiamibox/internal/infra/xiami"
)

const (
	hubBufferSize   = 64
	shutdownTimeout = 10 * time.Second
)

var (
	app        = kingpin.New("xiamibox", "Desktop shell for the xiami web player")
	configPath = app.Flag("config", "Path to config file").Default(config.DefaultPath()).String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// sync command
	syncCmd    = app.Command("sync", "Synchronize one playlist URL into the track store and exit")
	syncURL    = syncCmd.Arg("url", "Playlist URL").Required().String()
	syncCookie = syncCmd.Flag("cookie", "Cookie header for "+xiami.Origin).Envar("XIAMIBOX_COOKIE").String()

	// lookup command
	lookupCmd = app.Command("lookup", "Print a stored track record")
	lookupID  = lookupCmd.Arg("id", "Track ID").Required().String()
)

func init() {
	// start command (default)
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output:     "stdout",
		Level:      "info",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	zlog.Debug().Msgf("Config loaded from %s", *configPath)

	switch command {
	case syncCmd.FullCommand():
		err = runSync(cfg, *syncURL, *syncCookie)
	case lookupCmd.FullCommand():
		err = runLookup(cfg, *lookupID)
	default:
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("xiamibox: %v", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	st, err := store.New(ctx, cfg.Store, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open track store: %w", err)
	}
	return st, nil
}

// run executes the player. Using a separate function ensures deferred
// cleanup runs even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Another instance owns the socket: bring its window up and leave.
	if cfg.IPC.Enabled {
		if client, err := ipc.Connect(ctx); err == nil {
			zlog.Info().Msg("Another instance is running, showing its window")
			if err := client.Show(ctx); err != nil {
				return fmt.Errorf("failed to show running instance: %w", err)
			}
			return nil
		}
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close track store: %v", err)
		}
	}()

	sink, closeSink, err := notify.New(cfg.Notification)
	if err != nil {
		return fmt.Errorf("failed to create notification sink: %w", err)
	}
	defer func() { _ = closeSink() }()

	hub := events.NewHub(hubBufferSize)
	defer hub.Close()

	userDataDir := cfg.Browser.UserDataDir
	if userDataDir == "" {
		userDataDir = filepath.Join(dataDir, "browser")
	}
	// The window opens blank; the shell loads the player page once the
	// response pipeline listens.
	host, err := chrome.Launch(ctx, chrome.LaunchOptions{
		Path:           cfg.Browser.Path,
		DebugPort:      cfg.Browser.DebugPort,
		UserDataDir:    userDataDir,
		Width:          cfg.Window.Width,
		Height:         cfg.Window.Height,
		StartupTimeout: time.Duration(cfg.Browser.StartupTimeout) * time.Second,
		ExtraArgs:      cfg.Browser.ExtraArgs,
	}, hub)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := host.Close(closeCtx); err != nil {
			zlog.Warn().Msgf("Failed to stop browser: %v", err)
		}
	}()

	manager := shell.NewManager(shell.Deps{
		Host:     host,
		Hub:      hub,
		Store:    st,
		Sink:     sink,
		Fetcher:  xiami.New(nil),
		Icon:     cfg.Notification.Icon,
		StartURL: xiami.PlayerURL,
	}, shell.DefaultEndpoints())

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	if cfg.MPRIS.Enabled {
		media := mpris.NewHandler(config.AppName, manager.Controller())
		media.OnQuit = func() error {
			quit()
			return nil
		}
		manager.SetMedia(media)
		media.Start()
		defer media.Shutdown()
	}

	if err := manager.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = manager.Close(shutdownCtx)
		return fmt.Errorf("failed to start shell: %w", err)
	}

	if cfg.IPC.Enabled {
		ipcServer, err := ipc.Serve(manager.Controller(), quit)
		if err != nil {
			zlog.Warn().Msgf("Remote control unavailable: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := ipcServer.Shutdown(shutdownCtx); err != nil {
					zlog.Warn().Msgf("Failed to stop remote control: %v", err)
				}
			}()
		}
	}

	zlog.Info().Msgf("xiamibox started: store=%s", cfg.Store.Type)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-quitCh:
		zlog.Info().Msg("Quit requested...")
	case <-manager.Done():
		zlog.Info().Msg("Player window closed, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Close(shutdownCtx); err != nil {
		zlog.Warn().Msgf("Failed to close player window: %v", err)
	}

	zlog.Info().Msg("xiamibox stopped")
	return nil
}

// runSync performs one playlist synchronization outside the browser, using
// the given Cookie header as the player session.
func runSync(cfg *config.Config, rawURL, cookieHeader string) error {
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	jar, err := cookie.NewJar()
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if err := jar.Set(xiami.Origin, cookie.ParseHeader(cookieHeader)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}

	syncer := playlistsync.New(jar, xiami.New(nil), st, xiami.Origin)
	res, err := syncer.Sync(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Synchronized %s\n", res.URL)
	fmt.Printf("  written: %d, skipped: %d, failed: %d\n", res.Written, res.Skipped, res.Failed)
	return nil
}

// runLookup prints the stored record for id.
func runLookup(cfg *config.Config, id string) error {
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if rec.IsEmpty() {
		fmt.Printf("Track %s not found\n", id)
		return nil
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
