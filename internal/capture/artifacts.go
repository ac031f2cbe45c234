package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grantcarthew/cdpsnap/internal/htmlformat"
)

// Artifact file names written by WriteDir.
const (
	ScreenshotFile    = "screenshot.png"
	PDFFile           = "page.pdf"
	SnapshotFile      = "snapshot.json"
	AccessibilityFile = "accessibility.json"
	HTMLFile          = "page.html"
)

// WriteDir writes the captured artifacts into dir and returns the paths written.
// Artifacts that were not captured are skipped.
func (a *Artifacts) WriteDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if a.Screenshot != nil {
		if err := write(ScreenshotFile, a.Screenshot); err != nil {
			return written, err
		}
	}
	if a.PDF != nil {
		if err := write(PDFFile, a.PDF); err != nil {
			return written, err
		}
	}
	if a.Snapshot != nil {
		data, err := indentJSON(a.Snapshot)
		if err != nil {
			return written, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := write(SnapshotFile, data); err != nil {
			return written, err
		}
	}
	if a.Accessibility != nil {
		data, err := json.MarshalIndent(a.Accessibility, "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode accessibility tree: %w", err)
		}
		if err := write(AccessibilityFile, append(data, '\n')); err != nil {
			return written, err
		}
	}
	if a.HTML != "" {
		html, err := htmlformat.Format(a.HTML)
		if err != nil {
			html = a.HTML
		}
		if err := write(HTMLFile, []byte(html)); err != nil {
			return written, err
		}
	}

	return written, nil
}

func indentJSON(raw json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
