package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/harbor/internal/archive"
	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/db"
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/workspace"
)

// ExportArchiveInput contains parameters for the ExportArchive operation.
type ExportArchiveInput struct {
	Path string // optional, default: ~/.harbor/exports/<Name>.zip
	Name string // optional base name for the default path
}

// ExportArchiveOutput contains the result of the ExportArchive operation.
type ExportArchiveOutput struct {
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Folders    int    `json:"folders"`
	Bytes      int64  `json:"bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportArchive writes the forest as a ZIP file. A failed export leaves any
// existing file at the destination intact. When database is non-nil the
// export is recorded in the history.
func ExportArchive(ctx context.Context, ws *workspace.Workspace, database *sql.DB, cfg *config.Config, input ExportArchiveInput) (*ExportArchiveOutput, error) {
	started := time.Now()

	dest := input.Path
	if dest == "" {
		p, err := defaultArchivePath(input.Name)
		if err != nil {
			return nil, err
		}
		dest = p
	}
	if err := ValidatePath(dest, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	var res archive.Result
	size, err := replaceFile(dest, func(f *os.File) error {
		if ctx.Err() != nil {
			return errors.NewCancelled("export")
		}
		var werr error
		res, werr = archive.Write(f, ws.Files())
		return werr
	})
	if err != nil {
		return nil, err
	}

	recordExport(ctx, database, db.ExportArchive, dest, res.Files, started)
	return &ExportArchiveOutput{
		Path:       dest,
		Files:      res.Files,
		Folders:    res.Folders,
		Bytes:      size,
		ExportedAt: started.Unix(),
	}, nil
}

// replaceFile writes dest through a sibling temp file that is synced and then
// renamed over dest. It returns the number of bytes written.
func replaceFile(dest string, write func(*os.File) error) (int64, error) {
	tmp := dest + "." + strings.ToLower(ulid.Make().String()) + ".tmp"
	f, err := openNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmp)
		}
	}()

	size, err := writeAndClose(f, write)
	if err != nil {
		return 0, err
	}
	if isSymlink(dest) {
		return 0, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}
	if err := os.Rename(tmp, dest); err != nil {
		// Windows refuses to rename over an existing file.
		if _, statErr := os.Stat(dest); statErr == nil && runtime.GOOS == "windows" {
			return 0, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
		}
		return 0, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	renamed = true
	return size, nil
}

func writeAndClose(f *os.File, write func(*os.File) error) (int64, error) {
	err := write(f)
	if err == nil {
		err = f.Sync()
	}
	var size int64
	if err == nil {
		var info os.FileInfo
		if info, err = f.Stat(); err == nil {
			size = info.Size()
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	if err == nil {
		return size, nil
	}
	if _, ok := err.(*errors.HarborError); ok {
		return 0, err
	}
	return 0, errors.NewInternal(err)
}

// defaultArchivePath returns ~/.harbor/exports/<name>.zip, with name
// defaulting to archive.DefaultName.
func defaultArchivePath(name string) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	filename := archive.DefaultName
	if name = strings.TrimSpace(name); name != "" {
		filename = archiveBaseName(name) + ArchiveExt
	}
	return filepath.Join(dir, filename), nil
}

// recordExport appends to the export history. History is best effort: a
// failure is logged and the export still succeeds.
func recordExport(ctx context.Context, database *sql.DB, kind, target string, files int, at time.Time) {
	if database == nil {
		return
	}
	rec := &db.ExportRecord{
		Kind:       kind,
		Target:     target,
		Files:      files,
		ExportedAt: at.Unix(),
	}
	if err := db.RecordExport(ctx, database, rec); err != nil {
		log.Printf("history: record %s export: %v", kind, err)
	}
}
