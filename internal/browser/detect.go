// Package browser discovers protocol endpoints and launches a local Chrome.
package browser

import (
	"errors"
	"os"
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
)

// ChromeEnv names the environment variable that overrides browser detection.
const ChromeEnv = "CDPSNAP_CHROME"

// ErrChromeNotFound is returned when no Chrome binary can be located.
var ErrChromeNotFound = errors.New("chrome not found")

// lookPath is replaced in tests.
var lookPath = launcher.LookPath

// chromePaths returns the list of paths to search for Chrome on the current platform.
func chromePaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"google-chrome",
			"chromium",
		}
	default:
		return nil
	}
}

// FindChrome locates a Chrome or Chromium binary. CDPSNAP_CHROME wins when
// set; otherwise the usual install paths are searched, then the locations
// known to the rod launcher (which also covers Windows and Edge).
func FindChrome() (string, error) {
	if envPath := os.Getenv(ChromeEnv); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", ErrChromeNotFound
	}

	for _, path := range chromePaths() {
		if found, err := exec.LookPath(path); err == nil {
			return found, nil
		}
	}

	if found, ok := lookPath(); ok {
		return found, nil
	}

	return "", ErrChromeNotFound
}
