package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/harbor/internal/db"
	"github.com/hpungsan/harbor/internal/errors"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Kind  string // optional: "archive" or "gist"
	Limit int    // default: 20, max: 200
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items []db.ExportRecord `json:"items" yaml:"items"`
}

// History lists recent archive exports and gist pushes, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if database == nil {
		return &HistoryOutput{Items: []db.ExportRecord{}}, nil
	}
	if input.Kind != "" && input.Kind != db.ExportArchive && input.Kind != db.ExportGist {
		return nil, errors.NewInvalidRequest("kind must be archive or gist")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	items, err := db.ListExports(ctx, database, input.Kind, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.ExportRecord{}
	}
	return &HistoryOutput{Items: items}, nil
}
