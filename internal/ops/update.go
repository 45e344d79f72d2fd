package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// MaxFileBytes bounds the content accepted by UpdateFile.
const MaxFileBytes = 5 << 20

// UpdateFileInput contains parameters for the UpdateFile operation.
type UpdateFileInput struct {
	ID      string
	Path    string
	Content string
	Save    bool // clear the unsaved flag after writing
}

// UpdateFileOutput contains the result of the UpdateFile operation.
type UpdateFileOutput struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Unsaved bool   `json:"is_unsaved"`
	Size    int    `json:"size"`
}

// UpdateFile replaces a file's content. The file and its tab become unsaved
// unless Save is set. Folders and unknown ids are no-ops.
func UpdateFile(ctx context.Context, ws *workspace.Workspace, input UpdateFileInput) (*UpdateFileOutput, error) {
	if len(input.Content) > MaxFileBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("content exceeds maximum size of %d bytes", MaxFileBytes))
	}
	id, err := resolve(ws.Files(), input.ID, input.Path)
	if err != nil {
		return nil, err
	}

	applied, err := ws.UpdateContent(ctx, id, input.Content)
	if err != nil {
		return nil, err
	}
	out := &UpdateFileOutput{ID: id, Applied: applied}
	if !applied {
		return out, nil
	}
	if input.Save {
		if _, _, err := ws.Save(ctx, id); err != nil {
			return nil, err
		}
	}
	if file, ok := tree.FindFile(ws.Files(), id); ok {
		out.Unsaved = file.Unsaved
		out.Size = len(file.Text())
	}
	return out, nil
}

// SaveFileInput contains parameters for the SaveFile operation. With neither
// field set the active tab is saved.
type SaveFileInput struct {
	ID   string
	Path string
}

// SaveFileOutput contains the result of the SaveFile operation.
type SaveFileOutput struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
}

// SaveFile clears the unsaved flag on a node and its tab.
func SaveFile(ctx context.Context, ws *workspace.Workspace, input SaveFileInput) (*SaveFileOutput, error) {
	id := ""
	if input.ID != "" || input.Path != "" {
		var err error
		id, err = resolve(ws.Files(), input.ID, input.Path)
		if err != nil {
			return nil, err
		}
	}

	saved, applied, err := ws.Save(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SaveFileOutput{ID: saved, Applied: applied}, nil
}
