// Package chrome hosts the player page in a Chromium app window driven over
// the DevTools protocol.
package chrome

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/xiamibox/internal/app/events"
)

// BlankURL is the page the app window opens on. The player page is loaded
// with Host.Navigate once something listens to the response stream.
const BlankURL = "about:blank"

// ErrBrowserNotFound is returned when no Chromium binary can be located.
var ErrBrowserNotFound = errors.New("no chromium based browser found")

// LaunchOptions describe how to start the browser.
type LaunchOptions struct {
	Path           string
	DebugPort      int
	UserDataDir    string
	Width          int
	Height         int
	StartupTimeout time.Duration
	ExtraArgs      []string
}

var candidates = map[string][]string{
	"linux": {
		"chromium", "chromium-browser", "google-chrome", "google-chrome-stable",
		"microsoft-edge", "brave-browser",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
	"windows": {
		"chrome.exe", "msedge.exe",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	},
}

// FindBrowser returns path if set, otherwise the first known browser found.
func FindBrowser(path string) (string, error) {
	if path != "" {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", errors.Wrapf(err, "browser %s not usable", path)
		}
		return resolved, nil
	}
	for _, name := range candidates[runtime.GOOS] {
		if resolved, err := exec.LookPath(name); err == nil {
			return resolved, nil
		}
	}
	return "", ErrBrowserNotFound
}

// Flags returns the command line switches of the app window as name/value
// pairs. Extra arguments of the form --name=value or --name are appended.
func Flags(opts LaunchOptions) map[string]any {
	flags := map[string]any{
		"app":                                 BlankURL,
		"no-first-run":                        true,
		"no-default-browser-check":            true,
		"disable-background-timer-throttling": true,
		"autoplay-policy":                     "no-user-gesture-required",
	}
	if opts.DebugPort > 0 {
		flags["remote-debugging-port"] = opts.DebugPort
	}
	for _, arg := range opts.ExtraArgs {
		name, value := splitFlag(arg)
		if name != "" {
			flags[name] = value
		}
	}
	return flags
}

// splitFlag turns "--name=value" into (name, value) and "--name" into
// (name, true).
func splitFlag(arg string) (string, any) {
	arg = strings.TrimLeft(arg, "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// allocatorOptions builds the options of a visible, non-headless window.
func allocatorOptions(bin string, opts LaunchOptions) []chromedp.ExecAllocatorOption {
	o := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(bin),
		chromedp.WindowSize(opts.Width, opts.Height),
	}
	if opts.UserDataDir != "" {
		o = append(o, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.StartupTimeout > 0 {
		o = append(o, chromedp.WSURLReadTimeout(opts.StartupTimeout))
	}
	for name, value := range Flags(opts) {
		o = append(o, chromedp.Flag(name, value))
	}
	return o
}

// Launch starts the browser on a blank app window, attaches to its page and
// publishes the page's responses to pub. The player page is not loaded yet.
func Launch(ctx context.Context, opts LaunchOptions, pub events.Publisher) (*Host, error) {
	bin, err := FindBrowser(opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0o700); err != nil {
			return nil, errors.Wrap(err, "failed to create browser profile directory")
		}
	}

	zlog.Debug().Msgf("chrome: starting %s", bin)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(bin, opts)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty run starts the browser and attaches to its first page.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, errors.Wrapf(err, "failed to start %s", bin)
	}

	c := chromedp.FromContext(tabCtx)
	h := NewHost(c.Target, c.Target.TargetID, pub)
	h.closer = func(context.Context) error {
		err := chromedp.Cancel(tabCtx)
		cancelAlloc()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	chromedp.ListenTarget(tabCtx, h.handleEvent)
	chromedp.ListenBrowser(tabCtx, h.handleEvent)
	go func() {
		select {
		case <-c.Browser.LostConnection:
			zlog.Info().Msg("chrome: lost connection to browser")
		case <-tabCtx.Done():
		case <-h.done:
			return
		}
		h.markDone()
	}()

	if err := h.Enable(ctx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, err
	}

	zlog.Info().Msgf("chrome: browser ready (target=%s)", h.targetID)
	return h, nil
}
