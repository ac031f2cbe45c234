package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time.
var Version = "dev"

// Debug enables verbose debug output.
var Debug bool

// JSONOutput enables JSON output format (default is text).
var JSONOutput bool

// NoColor disables color output.
var NoColor bool

var rootCmd = &cobra.Command{
	Use:   "cdpsnap [url]",
	Short: "Capture a page through the DevTools protocol",
	Long: `cdpsnap connects to a browser's remote-debugging endpoint, optionally
navigates a page, and writes a screenshot, a PDF, a DOM snapshot and the
accessibility tree of every frame to the output directory.

The endpoint is taken from --endpoint, $CDPSNAP_ENDPOINT or the config file.
Without one, targets are discovered over HTTP at --discovery.

Examples:
  cdpsnap https://example.com
  cdpsnap --endpoint ws://127.0.0.1:9222/devtools/browser/abc -o out
  cdpsnap --select 'url contains "github"' --full-page
  cdpsnap --launch-local example.com`,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runCapture,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&JSONOutput, "json", false, "Output in JSON format (default is text)")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable color output")
	rootCmd.SetVersionTemplate(`cdpsnap version {{.Version}}
Repository: https://github.com/grantcarthew/cdpsnap
Report issues: https://github.com/grantcarthew/cdpsnap/issues/new
`)
}

// debugf logs a debug message if debug mode is enabled.
// Format: [DEBUG] [HH:MM:SS.mmm] [CATEGORY] message
func debugf(category, format string, args ...any) {
	if Debug {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(os.Stderr, "[DEBUG] [%s] [%s] %s\n", timestamp, category, fmt.Sprintf(format, args...))
	}
}

// debugFile logs a file write.
func debugFile(action, path string, size int64) {
	debugf("FILE", "%s %d bytes to %s", action, size, path)
}

// debugTiming logs how long an operation took.
func debugTiming(operation string, d time.Duration) {
	debugf("TIMING", "%s: %s", operation, d.Round(time.Millisecond))
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteArgs runs the root command with explicit arguments.
func ExecuteArgs(args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// debugLogger returns a printf-style logger that writes debug lines
// under category. Protocol and capture logging both go through it.
func debugLogger(category string) func(format string, args ...any) {
	return func(format string, args ...any) {
		debugf(category, format, args...)
	}
}

// printedError is an error whose message was already written to stderr.
type printedError struct {
	msg string
}

func (e *printedError) Error() string {
	return e.msg
}

// IsPrintedError reports whether err has already been shown to the user.
func IsPrintedError(err error) bool {
	var pe *printedError
	return errors.As(err, &pe)
}

// isStdoutTTY returns true if stdout is a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// outputJSON writes a JSON response to the given writer.
// Pretty prints if stdout is a TTY, compact otherwise.
func outputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if isStdoutTTY() {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// outputError writes an error response to stderr and returns an error.
// Uses text format by default, JSON if --json flag is set.
func outputError(msg string) error {
	if JSONOutput {
		resp := map[string]any{
			"ok":    false,
			"error": msg,
		}
		_ = outputJSON(os.Stderr, resp)
	} else {
		if shouldUseColor() {
			color.New(color.FgRed).Fprint(os.Stderr, "Error:")
			fmt.Fprintf(os.Stderr, " %s\n", msg)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
	}
	return &printedError{msg: msg}
}

// outputNotice writes an informational message to stderr.
// Suppressed in JSON mode so stdout and stderr stay machine-readable.
func outputNotice(format string, args ...any) {
	if JSONOutput {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// shouldUseColor determines if color output should be used based on flags and environment.
func shouldUseColor() bool {
	if JSONOutput {
		return false
	}
	if NoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
