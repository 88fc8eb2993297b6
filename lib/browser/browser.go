// Package browser acquires a headless chromium process for exactly one
// scraping operation. Deployment targets differ in where (and whether) a
// browser binary is provisioned, so acquisition walks a list of candidate
// executables before falling back to whatever the playwright driver
// resolves on its own.
package browser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"
)

var ErrUnavailable = errors.New("no usable headless browser could be acquired")

// DefaultExecutablePaths covers the usual container and distro layouts.
var DefaultExecutablePaths = []string{
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
	"/opt/google/chrome/chrome",
}

// Sandboxing has to stay off: the usual deployment target is an
// unprivileged container where the chromium sandbox cannot start.
var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
}

type Launcher struct {
	// ExecutablePaths are tried in order before the zero-configuration
	// launch. Empty means DefaultExecutablePaths.
	ExecutablePaths []string
}

// Handle owns a running playwright driver and browser process. It is
// scoped to one logical operation and must be closed on every path.
type Handle struct {
	pw      *playwright.Playwright
	Browser playwright.Browser
}

func (h *Handle) Close() {
	if h.Browser != nil {
		if err := h.Browser.Close(); err != nil {
			slog.Warn("failed to close browser", "err", err)
		}
	}
	if h.pw != nil {
		if err := h.pw.Stop(); err != nil {
			slog.Warn("failed to stop playwright driver", "err", err)
		}
	}
}

// Acquire launches a headless browser, trying each candidate executable
// and then a zero-configuration launch. Only exhaustion of every
// strategy surfaces ErrUnavailable.
func (l Launcher) Acquire() (*Handle, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: start driver: %v", ErrUnavailable, err)
	}

	paths := l.ExecutablePaths
	if len(paths) == 0 {
		paths = DefaultExecutablePaths
	}

	for _, path := range paths {
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless:       playwright.Bool(true),
			ExecutablePath: playwright.String(path),
			Args:           launchArgs,
		})
		if err != nil {
			slog.Debug("browser launch candidate failed", "executable", path, "err", err)
			continue
		}
		slog.Debug("browser launched", "executable", path)
		return &Handle{pw: pw, Browser: b}, nil
	}

	// last resort: let the driver resolve its own bundled browser
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     launchArgs,
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			slog.Warn("failed to stop playwright driver", "err", stopErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	slog.Debug("browser launched via driver-managed executable")
	return &Handle{pw: pw, Browser: b}, nil
}
