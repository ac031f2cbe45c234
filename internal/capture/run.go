package capture

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grantcarthew/cdpsnap/internal/cdp"
)

// SelectFunc chooses one page from the candidates.
type SelectFunc func(pages []TargetInfo) (TargetInfo, error)

// Options configures a capture run.
type Options struct {
	// URL is navigated to before capturing. Empty captures the page as is.
	URL string

	// TargetID prefers a specific page, typically picked during HTTP discovery.
	TargetID string

	// Select chooses among pages when TargetID is empty or unknown.
	// Nil picks the first page.
	Select SelectFunc

	// CreatePage opens a blank page when the browser has none, as a fresh
	// pooled browser may.
	CreatePage bool

	FullPage bool

	// HTML also captures the serialized document.
	HTML bool

	// Logf receives progress messages. May be nil.
	Logf func(format string, args ...any)
}

// Artifacts holds everything captured from one page.
type Artifacts struct {
	Target        TargetInfo
	SessionID     string
	Screenshot    []byte
	PDF           []byte
	Snapshot      json.RawMessage
	Accessibility map[string][]json.RawMessage
	HTML          string
}

// Run attaches to a page, optionally navigates it, and captures all artifacts.
func Run(ctx context.Context, c *cdp.Client, opts Options) (*Artifacts, error) {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	target, err := choosePage(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	logf("selected target %s (%s)", target.TargetID, target.URL)

	sessionID, err := Attach(ctx, c, target.TargetID)
	if err != nil {
		return nil, err
	}
	logf("attached with session %s", sessionID)

	if err := EnableDomains(ctx, c, sessionID, DefaultDomains...); err != nil {
		return nil, err
	}

	if opts.URL != "" {
		logf("navigating to %s", opts.URL)
		if err := Navigate(ctx, c, sessionID, opts.URL); err != nil {
			return nil, err
		}
		target.URL = opts.URL
	}

	art := &Artifacts{Target: target, SessionID: sessionID}

	if art.Screenshot, err = Screenshot(ctx, c, sessionID, opts.FullPage); err != nil {
		return nil, err
	}
	logf("screenshot: %d bytes", len(art.Screenshot))

	// Headful browsers do not implement printing; a refused PDF is skipped.
	art.PDF, err = PrintPDF(ctx, c, sessionID)
	if err != nil {
		if !cdp.IsRemoteError(err) {
			return nil, err
		}
		logf("skipping PDF: %v", err)
	}

	if art.Snapshot, err = CaptureSnapshot(ctx, c, sessionID); err != nil {
		return nil, err
	}

	if art.Accessibility, err = AccessibilityTree(ctx, c, sessionID); err != nil {
		return nil, err
	}
	logf("accessibility tree: %d frames", len(art.Accessibility))

	if opts.HTML {
		if art.HTML, err = OuterHTML(ctx, c, sessionID); err != nil {
			return nil, err
		}
	}

	return art, nil
}

func choosePage(ctx context.Context, c *cdp.Client, opts Options) (TargetInfo, error) {
	pages, err := ListPages(ctx, c)
	if err != nil {
		return TargetInfo{}, err
	}

	if len(pages) == 0 && opts.CreatePage {
		id, err := CreatePage(ctx, c, "about:blank")
		if err != nil {
			return TargetInfo{}, err
		}
		if pages, err = ListPages(ctx, c); err != nil {
			return TargetInfo{}, err
		}
		if t := FindTarget(pages, id); t != nil {
			return *t, nil
		}
	}
	if len(pages) == 0 {
		return TargetInfo{}, ErrNoTargets
	}

	if opts.TargetID != "" {
		if t := FindTarget(pages, opts.TargetID); t != nil {
			return *t, nil
		}
	}
	if opts.Select != nil {
		t, err := opts.Select(pages)
		if err != nil {
			return TargetInfo{}, fmt.Errorf("select target: %w", err)
		}
		return t, nil
	}
	return pages[0], nil
}
