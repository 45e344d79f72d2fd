package ops

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/harbor/internal/archive"
	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// Import limits. MaxArchiveBytes bounds the compressed file;
// MaxImportedBytes bounds the content it decompresses to. Each entry is also
// held to MaxFileBytes.
const (
	MaxArchiveBytes  = 64 << 20
	MaxImportedBytes = 256 << 20
)

// ImportMode controls how an imported archive meets the current forest.
type ImportMode string

const (
	ImportModeReplace ImportMode = "replace" // swap the forest, closing all tabs
	ImportModeMerge   ImportMode = "merge"   // append imported nodes at the top level
)

// ImportArchiveInput contains parameters for the ImportArchive operation.
type ImportArchiveInput struct {
	Path   string     // required
	Mode   ImportMode // default: replace
	DryRun bool       // list the entries without touching the workspace
}

// ImportArchiveOutput contains the result of the ImportArchive operation.
type ImportArchiveOutput struct {
	Mode    ImportMode `json:"mode"`
	Stats   tree.Stats `json:"stats"`
	Applied bool       `json:"applied"`
	Entries []string   `json:"entries,omitempty"` // dry run only
}

// ImportArchive loads a ZIP archive into the workspace.
func ImportArchive(ctx context.Context, ws *workspace.Workspace, cfg *config.Config, input ImportArchiveInput) (*ImportArchiveOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeReplace
	}
	if input.Mode != ImportModeReplace && input.Mode != ImportModeMerge {
		return nil, errors.NewInvalidRequest("mode must be one of: replace, merge")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := err.(*errors.HarborError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open archive: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxArchiveBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read archive: %w", err))
	}
	if len(data) > MaxArchiveBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("archive exceeds maximum size of %d bytes", MaxArchiveBytes))
	}
	entries, err := archive.Read(data, archive.Limits{Entry: MaxFileBytes, Total: MaxImportedBytes})
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	imported := archive.Forest(entries)
	if input.DryRun {
		paths, err := archive.Paths(data)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		return &ImportArchiveOutput{Mode: input.Mode, Stats: tree.Count(imported), Entries: paths}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("import")
	}

	switch input.Mode {
	case ImportModeReplace:
		if err := ws.ReplaceForest(ctx, imported); err != nil {
			return nil, err
		}
	case ImportModeMerge:
		for _, n := range imported {
			if _, err := ws.Insert(ctx, tree.Root, n); err != nil {
				return nil, err
			}
		}
	}
	return &ImportArchiveOutput{
		Mode:    input.Mode,
		Stats:   tree.Count(imported),
		Applied: true,
	}, nil
}
