package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

// captureStderr captures stderr output during test execution.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

// enableDebug enables debug mode for the duration of the test.
func enableDebug(t *testing.T) {
	old := Debug
	Debug = true
	t.Cleanup(func() { Debug = old })
}

func TestDebugfFormat(t *testing.T) {
	enableDebug(t)

	output := captureStderr(t, func() {
		debugf("TEST", "hello %s", "world")
	})

	// Format should be: [DEBUG] [HH:MM:SS.mmm] [CATEGORY] message
	if !strings.HasPrefix(output, "[DEBUG] [") {
		t.Errorf("expected [DEBUG] prefix, got: %s", output)
	}
	if !strings.Contains(output, "[TEST]") {
		t.Errorf("expected [TEST] category, got: %s", output)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("expected 'hello world' message, got: %s", output)
	}
	if !strings.Contains(output, ":") || !strings.Contains(output, ".") {
		t.Errorf("expected timestamp with : and ., got: %s", output)
	}
}

func TestDebugfNoOutputWhenDisabled(t *testing.T) {
	old := Debug
	Debug = false
	defer func() { Debug = old }()

	output := captureStderr(t, func() {
		debugf("TEST", "should not appear")
	})

	if output != "" {
		t.Errorf("expected no output when debug disabled, got: %s", output)
	}
}

func TestDebugFile(t *testing.T) {
	enableDebug(t)

	output := captureStderr(t, func() {
		debugFile("wrote", "/tmp/screenshot.png", 4096)
	})

	if !strings.Contains(output, "[FILE]") {
		t.Errorf("expected [FILE] category, got: %s", output)
	}
	if !strings.Contains(output, "wrote 4096 bytes to /tmp/screenshot.png") {
		t.Errorf("expected file details, got: %s", output)
	}
}

func TestDebugTiming(t *testing.T) {
	enableDebug(t)

	output := captureStderr(t, func() {
		debugTiming("capture", 150*time.Millisecond)
	})

	if !strings.Contains(output, "[TIMING]") {
		t.Errorf("expected [TIMING] category, got: %s", output)
	}
	if !strings.Contains(output, "capture: 150ms") {
		t.Errorf("expected timing details, got: %s", output)
	}
}

func TestDebugLoggerUsesCategory(t *testing.T) {
	enableDebug(t)

	output := captureStderr(t, func() {
		logf := debugLogger("CDP")
		logf("dropping response with unknown id %d", 42)
	})

	if !strings.Contains(output, "[CDP] dropping response with unknown id 42") {
		t.Errorf("expected CDP debug line, got: %s", output)
	}
}

func TestDebugLoggerSilentWhenDisabled(t *testing.T) {
	old := Debug
	Debug = false
	defer func() { Debug = old }()

	output := captureStderr(t, func() {
		debugLogger("CAPTURE")("frame %s failed", "F1")
	})

	if output != "" {
		t.Errorf("expected no output when debug disabled, got: %s", output)
	}
}

func TestOutputNoticeSuppressedInJSONMode(t *testing.T) {
	old := JSONOutput
	JSONOutput = true
	defer func() { JSONOutput = old }()

	output := captureStderr(t, func() {
		outputNotice("PDF skipped: the browser refused to print")
	})

	if output != "" {
		t.Errorf("expected no notice in JSON mode, got: %s", output)
	}
}
