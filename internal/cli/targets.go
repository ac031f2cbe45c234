package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/grantcarthew/cdpsnap/internal/browser"
	"github.com/grantcarthew/cdpsnap/internal/capture"
	"github.com/grantcarthew/cdpsnap/internal/cdp"
	"github.com/grantcarthew/cdpsnap/internal/config"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List browsable targets",
	Long: `List the page targets cdpsnap can capture.

Targets come from HTTP discovery at --discovery, or from the browser itself
when an endpoint is configured. --select filters the list with the same
expression used for capturing.

Examples:
  cdpsnap targets
  cdpsnap targets --select 'title contains "Docs"'
  cdpsnap targets --endpoint ws://127.0.0.1:9222/devtools/browser/abc --json`,
	Args: cobra.NoArgs,
	RunE: runTargets,
}

func init() {
	addSourceFlags(targetsCmd.Flags())
	targetsCmd.Flags().Duration("timeout", config.DefaultTimeout, "Time limit for listing (0 disables)")
	rootCmd.AddCommand(targetsCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
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

	candidates, err := listCandidates(ctx, cfg)
	if err != nil {
		return outputError(describe(err))
	}

	candidates, err = browser.Filter(candidates, cfg.Select)
	if err != nil {
		return outputError(err.Error())
	}
	if len(candidates) == 0 {
		return outputError(capture.ErrNoTargets.Error())
	}

	return outputTargets(candidates)
}

// listCandidates asks the browser over the protocol when an endpoint is
// configured, and the HTTP discovery service otherwise.
func listCandidates(ctx context.Context, cfg config.Config) ([]browser.Candidate, error) {
	if cfg.Endpoint == "" {
		targets, err := browser.FetchTargets(ctx, cfg.Discovery)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", browser.ErrNoEndpoint, err)
		}
		return browser.Candidates(browser.Browsable(targets)), nil
	}

	endpoint, err := browser.WithLaunchToken(cfg.Endpoint, cfg.LaunchToken)
	if err != nil {
		return nil, err
	}
	client, err := cdp.Dial(ctx, endpoint, cdp.WithLogger(func(format string, args ...any) {
		debugf("CDP", format, args...)
	}))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	pages, err := capture.ListPages(ctx, client)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Candidate, len(pages))
	for i, p := range pages {
		out[i] = browser.Candidate{ID: p.TargetID, Type: p.Type, Title: p.Title, URL: p.URL}
	}
	return out, nil
}

func outputTargets(candidates []browser.Candidate) error {
	if JSONOutput {
		type target struct {
			ID    string `json:"id"`
			Type  string `json:"type"`
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		out := make([]target, len(candidates))
		for i, c := range candidates {
			out[i] = target(c)
		}
		return outputJSON(os.Stdout, map[string]any{
			"ok":      true,
			"targets": out,
		})
	}

	useColor := shouldUseColor()
	for _, c := range candidates {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		if useColor {
			color.New(color.FgCyan).Fprint(os.Stdout, c.ID)
			fmt.Fprintf(os.Stdout, "  %s  %s\n", title, c.URL)
		} else {
			fmt.Fprintf(os.Stdout, "%s  %s  %s\n", c.ID, title, c.URL)
		}
	}
	return nil
}
