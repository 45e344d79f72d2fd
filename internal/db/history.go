package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/harbor/internal/errors"
)

// Export kinds recorded in the exports table.
const (
	ExportArchive = "archive"
	ExportGist    = "gist"
)

// ExportRecord is one row of export history.
type ExportRecord struct {
	ID         int64  `json:"id"`
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	Files      int    `json:"files"`
	ExportedAt int64  `json:"exported_at"`
}

// RecordExport appends an export to the history.
func RecordExport(ctx context.Context, db *sql.DB, r *ExportRecord) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO exports (kind, target, files, exported_at) VALUES (?, ?, ?, ?)`,
		r.Kind, r.Target, r.Files, r.ExportedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	r.ID = id
	return nil
}

// ListExports returns the most recent exports first. An empty kind matches
// every kind; limit <= 0 means no limit.
func ListExports(ctx context.Context, db *sql.DB, kind string, limit int) ([]ExportRecord, error) {
	query := `SELECT id, kind, target, files, exported_at FROM exports`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY exported_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []ExportRecord
	for rows.Next() {
		var r ExportRecord
		if err := rows.Scan(&r.ID, &r.Kind, &r.Target, &r.Files, &r.ExportedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// LastExport returns the most recent export of kind.
func LastExport(ctx context.Context, db *sql.DB, kind string) (*ExportRecord, error) {
	var r ExportRecord
	err := db.QueryRowContext(ctx,
		`SELECT id, kind, target, files, exported_at FROM exports WHERE kind = ? ORDER BY exported_at DESC, id DESC LIMIT 1`,
		kind,
	).Scan(&r.ID, &r.Kind, &r.Target, &r.Files, &r.ExportedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(kind + " export")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &r, nil
}
