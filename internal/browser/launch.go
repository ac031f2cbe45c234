package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// DefaultPort is the default remote debugging port.
const DefaultPort = 9222

// ErrStartTimeout is returned when the browser fails to start in time.
var ErrStartTimeout = errors.New("browser start timeout")

// LaunchOptions configures a local browser launch.
type LaunchOptions struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// Port for remote debugging. If 0, uses DefaultPort.
	Port int

	// Binary overrides FindChrome.
	Binary string
}

// Browser is a locally launched Chrome with remote debugging enabled.
type Browser struct {
	cmd     *exec.Cmd
	port    int
	dataDir string
}

// buildArgs constructs the Chrome command line arguments.
func buildArgs(opts LaunchOptions, dataDir string) []string {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", dataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-sync",
	}

	switch runtime.GOOS {
	case "darwin":
		args = append(args, "--use-mock-keychain")
	case "linux":
		args = append(args, "--password-store=basic")
	}

	if opts.Headless {
		args = append(args, "--headless")
	}

	return append(args, "about:blank")
}

// Start launches Chrome in a throwaway profile and waits until its discovery
// endpoint answers or ctx is done.
func Start(ctx context.Context, opts LaunchOptions) (*Browser, error) {
	bin := opts.Binary
	if bin == "" {
		found, err := FindChrome()
		if err != nil {
			return nil, err
		}
		bin = found
	}

	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	dataDir, err := os.MkdirTemp("", "cdpsnap-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	cmd := exec.Command(bin, buildArgs(opts, dataDir)...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dataDir)
		return nil, fmt.Errorf("start browser: %w", err)
	}

	b := &Browser{cmd: cmd, port: port, dataDir: dataDir}
	if err := b.waitReady(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// waitReady polls /json/version until it responds.
func (b *Browser) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ErrStartTimeout
		case <-ticker.C:
			if _, err := FetchVersion(ctx, b.DiscoveryURL()); err == nil {
				return nil
			}
		}
	}
}

// DiscoveryURL returns the base URL of the browser's HTTP discovery endpoints.
func (b *Browser) DiscoveryURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", b.port)
}

// PID returns the browser process ID.
func (b *Browser) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// Close terminates the browser and removes its profile directory.
func (b *Browser) Close() error {
	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}

	if err := b.cmd.Process.Signal(os.Interrupt); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			_ = b.cmd.Process.Kill()
		}
	}
	_ = b.cmd.Wait()

	if b.dataDir != "" {
		os.RemoveAll(b.dataDir)
	}

	b.cmd = nil
	return nil
}
