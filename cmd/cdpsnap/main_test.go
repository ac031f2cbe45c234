package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/grantcarthew/cdpsnap/internal/cli"
)

func TestFormatCobraError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "mutually exclusive flags",
			err:  errors.New("if any flags in the group [endpoint launch-local] are set none of the others can be; [endpoint launch-local] were all set"),
			want: "--endpoint and --launch-local cannot be used together",
		},
		{
			name: "other errors pass through",
			err:  errors.New(`unknown flag: --bogus`),
			want: "unknown flag: --bogus",
		},
		{
			name: "arg count",
			err:  errors.New("accepts at most 1 arg(s), received 2"),
			want: "accepts at most 1 arg(s), received 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCobraError(tt.err); got != tt.want {
				t.Errorf("formatCobraError() = %q, want %q", got, tt.want)
			}
		})
	}
}

// The flag conflict is rejected by cobra before the command runs, so no
// browser or network is involved.
func TestRun_EndpointLaunchLocalConflict(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"--endpoint", "ws://127.0.0.1:1/devtools/browser/x", "--launch-local"}, &stderr)

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	want := "Error: --endpoint and --launch-local cannot be used together\n"
	if stderr.String() != want {
		t.Errorf("stderr = %q, want %q", stderr.String(), want)
	}
}

func TestRun_ConflictReportedAsJSON(t *testing.T) {
	t.Cleanup(func() { cli.JSONOutput = false })

	var stderr bytes.Buffer
	code := run([]string{"--json", "--endpoint", "ws://127.0.0.1:1/devtools/browser/x", "--launch-local"}, &stderr)

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(stderr.Bytes(), &resp); err != nil {
		t.Fatalf("stderr is not JSON: %v: %q", err, stderr.String())
	}
	if resp.OK {
		t.Error("expected ok=false")
	}
	if resp.Error != "--endpoint and --launch-local cannot be used together" {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
}

func TestRun_TooManyArguments(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"--endpoint", "ws://127.0.0.1:1/devtools/browser/x", "a.example", "b.example"}, &stderr)

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if stderr.String() != "Error: accepts at most 1 arg(s), received 2\n" {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}
}
