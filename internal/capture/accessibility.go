package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/grantcarthew/cdpsnap/internal/cdp"
	"golang.org/x/sync/errgroup"
)

// Frame is the subset of Page.Frame used to walk the frame tree.
type Frame struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	URL      string `json:"url"`
}

// FrameTree is a frame and its children.
type FrameTree struct {
	Frame       Frame       `json:"frame"`
	ChildFrames []FrameTree `json:"childFrames,omitempty"`
}

// FrameIDs returns every frame id in the tree, depth first, parents before children.
func FrameIDs(tree FrameTree) []string {
	ids := []string{tree.Frame.ID}
	for _, child := range tree.ChildFrames {
		ids = append(ids, FrameIDs(child)...)
	}
	return ids
}

// AccessibilityTree fetches the full accessibility tree of every frame in the
// page, keyed by frame id. Frames are requested concurrently. A frame whose
// request fails keeps its key with a nil node list; only a lost connection or
// a done ctx aborts the whole operation.
func AccessibilityTree(ctx context.Context, c *cdp.Client, sessionID string) (map[string][]json.RawMessage, error) {
	res, err := cdp.Call[struct {
		FrameTree FrameTree `json:"frameTree"`
	}](ctx, c, "Page.getFrameTree", nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get frame tree: %w", err)
	}

	ids := FrameIDs(res.FrameTree)
	nodes := make([][]json.RawMessage, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			tree, err := cdp.Call[struct {
				Nodes []json.RawMessage `json:"nodes"`
			}](gctx, c, "Accessibility.getFullAXTree", map[string]string{"frameId": id}, sessionID)
			if err != nil {
				if errors.Is(err, cdp.ErrClosed) || gctx.Err() != nil {
					return err
				}
				return nil
			}
			if tree.Nodes == nil {
				tree.Nodes = []json.RawMessage{}
			}
			nodes[i] = tree.Nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("get accessibility tree: %w", err)
	}

	out := make(map[string][]json.RawMessage, len(ids))
	for i, id := range ids {
		out[id] = nodes[i]
	}
	return out, nil
}
