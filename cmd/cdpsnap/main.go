package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/grantcarthew/cdpsnap/internal/cli"
)

var flagGroupRe = regexp.MustCompile(`\[([^\]]+)\] were all set`)

// formatCobraError converts verbose Cobra errors to user-friendly messages.
func formatCobraError(err error) string {
	msg := err.Error()

	// Mutual exclusivity: "if any flags in the group [endpoint launch-local] are set none of the others can be; [endpoint launch-local] were all set"
	if strings.Contains(msg, "none of the others can be") {
		if matches := flagGroupRe.FindStringSubmatch(msg); len(matches) > 1 {
			flags := strings.Split(matches[1], " ")
			for i := range flags {
				flags[i] = "--" + flags[i]
			}
			return fmt.Sprintf("%s cannot be used together", strings.Join(flags, " and "))
		}
	}

	return msg
}

// run executes the capture command and returns the process exit code.
// Errors the command did not print itself are reported on stderr, in the
// same shape the command uses for its own failures.
func run(args []string, stderr io.Writer) int {
	err := cli.ExecuteArgs(args)
	if err == nil {
		return 0
	}
	if !cli.IsPrintedError(err) {
		msg := formatCobraError(err)
		if cli.JSONOutput {
			_ = json.NewEncoder(stderr).Encode(map[string]any{
				"ok":    false,
				"error": msg,
			})
		} else {
			fmt.Fprintf(stderr, "Error: %s\n", msg)
		}
	}
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
