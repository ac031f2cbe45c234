package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/grantcarthew/cdpsnap/internal/cdp"
	"golang.org/x/sync/errgroup"
)

// DefaultDomains are enabled on every attached session.
var DefaultDomains = []string{"Page", "DOM", "Runtime", "Accessibility"}

// snapshotStyles are the computed styles requested for DOM snapshots.
var snapshotStyles = []string{"display", "visibility", "opacity", "position", "z-index"}

// EnableDomains sends <Domain>.enable for each domain concurrently.
func EnableDomains(ctx context.Context, c *cdp.Client, sessionID string, domains ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			if _, err := c.Call(gctx, domain+".enable", nil, sessionID); err != nil {
				return fmt.Errorf("enable %s: %w", domain, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Navigate loads url in the session's page and waits for its load event.
// The expectation is registered before Page.navigate is sent, since an event
// that arrives first would otherwise be dropped.
func Navigate(ctx context.Context, c *cdp.Client, sessionID, url string) error {
	loaded := c.Expect("Page.loadEventFired", sessionID)

	res, err := cdp.Call[struct {
		FrameID   string `json:"frameId"`
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}](ctx, c, "Page.navigate", map[string]string{"url": url}, sessionID)
	if err != nil {
		loaded.Cancel()
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if res.ErrorText != "" {
		loaded.Cancel()
		return fmt.Errorf("navigate to %s: %s", url, res.ErrorText)
	}
	// Same-document navigations have no loader and fire no load event.
	if res.LoaderID == "" {
		loaded.Cancel()
		return nil
	}

	if _, err := loaded.Wait(ctx); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Screenshot captures a PNG of the viewport, or of the whole document when
// fullPage is set.
func Screenshot(ctx context.Context, c *cdp.Client, sessionID string, fullPage bool) ([]byte, error) {
	params := map[string]any{"format": "png"}

	if fullPage {
		metrics, err := cdp.Call[struct {
			CSSContentSize struct {
				Width  float64 `json:"width"`
				Height float64 `json:"height"`
			} `json:"cssContentSize"`
		}](ctx, c, "Page.getLayoutMetrics", nil, sessionID)
		if err != nil {
			return nil, fmt.Errorf("get layout metrics: %w", err)
		}
		params["captureBeyondViewport"] = true
		params["clip"] = map[string]any{
			"x":      0,
			"y":      0,
			"width":  metrics.CSSContentSize.Width,
			"height": metrics.CSSContentSize.Height,
			"scale":  1,
		}
	}

	return callData(ctx, c, "Page.captureScreenshot", params, sessionID)
}

// PrintPDF renders the page as a PDF document.
func PrintPDF(ctx context.Context, c *cdp.Client, sessionID string) ([]byte, error) {
	return callData(ctx, c, "Page.printToPDF", map[string]any{
		"printBackground": true,
	}, sessionID)
}

// CaptureSnapshot returns the raw DOMSnapshot.captureSnapshot result.
func CaptureSnapshot(ctx context.Context, c *cdp.Client, sessionID string) (json.RawMessage, error) {
	raw, err := c.Call(ctx, "DOMSnapshot.captureSnapshot", map[string]any{
		"computedStyles": snapshotStyles,
	}, sessionID)
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	return raw, nil
}

// OuterHTML returns the serialized document.
func OuterHTML(ctx context.Context, c *cdp.Client, sessionID string) (string, error) {
	doc, err := cdp.Call[struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}](ctx, c, "DOM.getDocument", map[string]any{"depth": 0}, sessionID)
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}

	res, err := cdp.Call[struct {
		OuterHTML string `json:"outerHTML"`
	}](ctx, c, "DOM.getOuterHTML", map[string]any{"nodeId": doc.Root.NodeID}, sessionID)
	if err != nil {
		return "", fmt.Errorf("get outer HTML: %w", err)
	}
	return res.OuterHTML, nil
}

// callData calls a method whose result carries a base64 "data" field.
func callData(ctx context.Context, c *cdp.Client, method string, params any, sessionID string) ([]byte, error) {
	res, err := cdp.Call[struct {
		Data string `json:"data"`
	}](ctx, c, method, params, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	data, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: decode data: %w", method, err)
	}
	return data, nil
}
