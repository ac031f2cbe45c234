// Package capture drives a page over a cdp.Client and collects its artifacts.
//
// Everything here is composition on cdp.Call and Client.Expect; the package
// adds no correlation logic of its own.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/grantcarthew/cdpsnap/internal/cdp"
)

// ErrNoTargets is returned when the browser exposes no page targets.
var ErrNoTargets = errors.New("no browsable targets found")

// TargetInfo describes a target as reported by Target.getTargets.
type TargetInfo struct {
	TargetID         string `json:"targetId"`
	Type             string `json:"type"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	Attached         bool   `json:"attached"`
	BrowserContextID string `json:"browserContextId,omitempty"`
}

// ListPages returns the page targets known to the browser.
func ListPages(ctx context.Context, c *cdp.Client) ([]TargetInfo, error) {
	res, err := cdp.Call[struct {
		TargetInfos []TargetInfo `json:"targetInfos"`
	}](ctx, c, "Target.getTargets", nil, "")
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	var pages []TargetInfo
	for _, t := range res.TargetInfos {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// Attach attaches to a target in flat mode and returns the session id that
// scopes all further traffic for it.
func Attach(ctx context.Context, c *cdp.Client, targetID string) (string, error) {
	res, err := cdp.Call[struct {
		SessionID string `json:"sessionId"`
	}](ctx, c, "Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	}, "")
	if err != nil {
		return "", fmt.Errorf("attach to %s: %w", targetID, err)
	}
	if res.SessionID == "" {
		return "", fmt.Errorf("attach to %s: no session id returned", targetID)
	}
	return res.SessionID, nil
}

// CreatePage opens a new page target and returns its id.
func CreatePage(ctx context.Context, c *cdp.Client, url string) (string, error) {
	res, err := cdp.Call[struct {
		TargetID string `json:"targetId"`
	}](ctx, c, "Target.createTarget", map[string]string{"url": url}, "")
	if err != nil {
		return "", fmt.Errorf("create target: %w", err)
	}
	return res.TargetID, nil
}

// FindTarget returns the page with the given id, or nil.
func FindTarget(pages []TargetInfo, targetID string) *TargetInfo {
	for i := range pages {
		if pages[i].TargetID == targetID {
			return &pages[i]
		}
	}
	return nil
}
