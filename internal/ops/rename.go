package ops

import (
	"context"

	"github.com/hpungsan/harbor/internal/workspace"
)

// RenameNodeInput contains parameters for the RenameNode operation.
type RenameNodeInput struct {
	ID   string
	Path string
	Name string // required
}

// RenameNodeOutput contains the result of the RenameNode operation.
type RenameNodeOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// RenameNode changes a node's name. Open tabs keep their original path.
func RenameNode(ctx context.Context, ws *workspace.Workspace, input RenameNodeInput) (*RenameNodeOutput, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	id, err := resolve(ws.Files(), input.ID, input.Path)
	if err != nil {
		return nil, err
	}

	applied, err := ws.Rename(ctx, id, name)
	if err != nil {
		return nil, err
	}
	return &RenameNodeOutput{
		ID:      id,
		Name:    name,
		Applied: applied,
	}, nil
}
