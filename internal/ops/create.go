package ops

import (
	"context"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// CreateNodeInput contains parameters for the CreateNode operation.
type CreateNodeInput struct {
	ParentID   string // optional; empty with empty ParentPath means the top level
	ParentPath string // optional alternative to ParentID
	Name       string // required
	Type       string // "file" (default) or "folder"
	Content    *string
}

// CreateNodeOutput contains the result of the CreateNode operation.
type CreateNodeOutput struct {
	Applied bool      `json:"applied"`
	Node    *NodeInfo `json:"node,omitempty"`
}

// CreateNode adds a file or folder. A parent that does not exist or is a file
// leaves the tree unchanged and reports Applied false.
func CreateNode(ctx context.Context, ws *workspace.Workspace, input CreateNodeInput) (*CreateNodeOutput, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	kind := tree.KindFile
	if input.Type != "" {
		k, ok := tree.ParseKind(input.Type)
		if !ok {
			return nil, errors.NewInvalidRequest("type must be file or folder")
		}
		kind = k
	}
	if kind == tree.KindFolder && input.Content != nil {
		return nil, errors.NewInvalidRequest("folders have no content")
	}

	parentID := tree.Root
	if input.ParentID != "" || input.ParentPath != "" {
		parentID, err = resolve(ws.Files(), input.ParentID, input.ParentPath)
		if err != nil {
			return nil, err
		}
	}

	var (
		id      string
		applied bool
	)
	if kind == tree.KindFolder {
		var folder *tree.Folder
		folder, applied, err = ws.CreateFolder(ctx, parentID, name)
		if applied {
			id = folder.ID
		}
	} else {
		var file *tree.File
		file, applied, err = ws.CreateFile(ctx, parentID, name, input.Content)
		if applied {
			id = file.ID
		}
	}
	if err != nil {
		return nil, err
	}

	out := &CreateNodeOutput{Applied: applied}
	if applied {
		if info, ok := describeID(ws.Files(), id); ok {
			out.Node = &info
		}
	}
	return out, nil
}
