package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/grantcarthew/cdpsnap/internal/browser"
	"github.com/grantcarthew/cdpsnap/internal/capture"
	"github.com/grantcarthew/cdpsnap/internal/cdp"
	"github.com/grantcarthew/cdpsnap/internal/config"
	"github.com/grantcarthew/cdpsnap/internal/picker"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	fs := rootCmd.Flags()
	addSourceFlags(fs)
	fs.StringP("output", "o", ".", "Directory the artifacts are written to")
	fs.Duration("timeout", config.DefaultTimeout, "Overall time limit for the capture (0 disables)")
	fs.Bool("full-page", false, "Capture the whole page rather than the viewport")
	fs.Bool("html", false, "Also save the formatted document HTML")
	fs.Bool("launch-local", false, "Start a local Chrome instead of connecting to a running browser")
	fs.Bool("headless", true, "Run the locally launched Chrome headless")
	rootCmd.MarkFlagsMutuallyExclusive("endpoint", "launch-local")
}

// interactive reports whether the user can be asked to pick a target.
var interactive = func() bool {
	return !JSONOutput &&
		term.IsTerminal(int(os.Stdin.Fd())) &&
		term.IsTerminal(int(os.Stderr.Fd()))
}

// normalizeURL adds protocol to URL if missing.
// Uses http:// for localhost/127.0.0.1/0.0.0.0, https:// otherwise.
func normalizeURL(url string) string {
	if strings.Contains(url, "://") || strings.HasPrefix(url, "about:") || strings.HasPrefix(url, "data:") {
		return url
	}

	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "localhost") ||
		strings.HasPrefix(lower, "127.0.0.1") ||
		strings.HasPrefix(lower, "0.0.0.0") {
		return "http://" + url
	}

	return "https://" + url
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return outputError(err.Error())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if cfg.LaunchLocal {
		b, err := browser.Start(ctx, browser.LaunchOptions{Headless: cfg.Headless})
		if err != nil {
			return outputError(err.Error())
		}
		defer b.Close()
		debugf("LAUNCH", "started browser pid=%d", b.PID())
		cfg.Endpoint = ""
		cfg.Discovery = b.DiscoveryURL()
	}

	client, targetID, err := connect(ctx, cfg)
	if err != nil {
		return outputError(err.Error())
	}
	defer client.Close()

	opts := capture.Options{
		TargetID:   targetID,
		Select:     selectPage(cfg.Select),
		CreatePage: cfg.LaunchToken != "" || cfg.LaunchLocal,
		FullPage:   cfg.FullPage,
		HTML:       cfg.HTML,
		Logf:       debugLogger("CAPTURE"),
	}
	if len(args) > 0 {
		opts.URL = normalizeURL(args[0])
	}

	start := time.Now()
	art, err := capture.Run(ctx, client, opts)
	if err != nil {
		return outputError(describe(err))
	}
	debugTiming("capture", time.Since(start))

	files, err := art.WriteDir(cfg.OutputDir)
	if err != nil {
		return outputError(err.Error())
	}
	if Debug {
		for _, f := range files {
			if fi, err := os.Stat(f); err == nil {
				debugFile("wrote", f, fi.Size())
			}
		}
	}

	return outputCapture(art, files)
}

// connect determines the protocol endpoint and dials it. When the endpoint
// comes from HTTP discovery, the chosen target id is returned as well.
func connect(ctx context.Context, cfg config.Config) (*cdp.Client, string, error) {
	endpoint, targetID, err := resolveEndpoint(ctx, cfg)
	if err != nil {
		return nil, "", err
	}

	endpoint, err = browser.WithLaunchToken(endpoint, cfg.LaunchToken)
	if err != nil {
		return nil, "", err
	}
	debugf("CDP", "connecting to %s", endpoint)

	client, err := cdp.Dial(ctx, endpoint, cdp.WithLogger(debugLogger("CDP")))
	if err != nil {
		return nil, "", err
	}
	return client, targetID, nil
}

// resolveEndpoint returns the configured endpoint, or discovers one over HTTP.
func resolveEndpoint(ctx context.Context, cfg config.Config) (string, string, error) {
	if cfg.Endpoint != "" {
		return cfg.Endpoint, "", nil
	}

	targets, err := browser.FetchTargets(ctx, cfg.Discovery)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", browser.ErrNoEndpoint, err)
	}
	pages := browser.Browsable(targets)
	debugf("DISCOVERY", "%d targets, %d browsable", len(targets), len(pages))

	candidates, err := browser.Filter(browser.Candidates(pages), cfg.Select)
	if err != nil {
		return "", "", err
	}
	if len(candidates) == 0 {
		return "", "", capture.ErrNoTargets
	}

	chosen, err := chooseCandidate(candidates)
	if err != nil {
		return "", "", err
	}

	var target *browser.Target
	for i := range pages {
		if pages[i].ID == chosen.ID {
			target = &pages[i]
			break
		}
	}

	endpoint, err := browser.ResolveEndpoint(ctx, cfg.Discovery, target)
	if err != nil {
		return "", "", err
	}
	return endpoint, chosen.ID, nil
}

// chooseCandidate asks the user when there is a real choice and a terminal
// to ask on, and takes the first candidate otherwise.
func chooseCandidate(candidates []browser.Candidate) (browser.Candidate, error) {
	if len(candidates) == 1 || !interactive() {
		return candidates[0], nil
	}

	items := make([]picker.Item, len(candidates))
	for i, c := range candidates {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		items[i] = picker.Item{Title: title, Detail: c.URL}
	}

	idx, err := picker.Run("Select a target:", items, tea.WithOutput(os.Stderr))
	if err != nil {
		return browser.Candidate{}, err
	}
	return candidates[idx], nil
}

// selectPage filters protocol-level pages with the selection expression
// and picks among the rest.
func selectPage(expression string) capture.SelectFunc {
	return func(pages []capture.TargetInfo) (capture.TargetInfo, error) {
		candidates := make([]browser.Candidate, len(pages))
		for i, p := range pages {
			candidates[i] = browser.Candidate{ID: p.TargetID, Type: p.Type, Title: p.Title, URL: p.URL}
		}

		candidates, err := browser.Filter(candidates, expression)
		if err != nil {
			return capture.TargetInfo{}, err
		}
		if len(candidates) == 0 {
			return capture.TargetInfo{}, capture.ErrNoTargets
		}

		chosen, err := chooseCandidate(candidates)
		if err != nil {
			return capture.TargetInfo{}, err
		}
		return *capture.FindTarget(pages, chosen.ID), nil
	}
}

// describe turns well-known failures into short messages.
func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("timed out: %v", err)
	case errors.Is(err, cdp.ErrClosed):
		return fmt.Sprintf("browser connection lost: %v", err)
	}
	return err.Error()
}

func outputCapture(art *capture.Artifacts, files []string) error {
	if JSONOutput {
		return outputJSON(os.Stdout, map[string]any{
			"ok":        true,
			"targetId":  art.Target.TargetID,
			"url":       art.Target.URL,
			"sessionId": art.SessionID,
			"files":     files,
		})
	}

	if art.PDF == nil {
		outputNotice("PDF skipped: the browser refused to print")
	}
	for _, f := range files {
		if shouldUseColor() {
			color.New(color.FgGreen).Fprint(os.Stdout, "wrote ")
			fmt.Fprintln(os.Stdout, f)
		} else {
			fmt.Fprintf(os.Stdout, "wrote %s\n", f)
		}
	}
	return nil
}
