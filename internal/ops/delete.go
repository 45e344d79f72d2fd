package ops

import (
	"context"

	"github.com/hpungsan/harbor/internal/workspace"
)

// DeleteNodeInput contains parameters for the DeleteNode operation.
type DeleteNodeInput struct {
	ID   string
	Path string
}

// DeleteNodeOutput contains the result of the DeleteNode operation.
type DeleteNodeOutput struct {
	ID         string   `json:"id"`
	Applied    bool     `json:"applied"`
	ClosedTabs []string `json:"closed_tabs"`
}

// DeleteNode removes a node with its subtree and closes the affected tabs.
func DeleteNode(ctx context.Context, ws *workspace.Workspace, input DeleteNodeInput) (*DeleteNodeOutput, error) {
	id, err := resolve(ws.Files(), input.ID, input.Path)
	if err != nil {
		return nil, err
	}

	closed, applied, err := ws.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if closed == nil {
		closed = []string{}
	}
	return &DeleteNodeOutput{
		ID:         id,
		Applied:    applied,
		ClosedTabs: closed,
	}, nil
}
