// Package db is the local SQLite store: workspace records in a key-value
// table and the export history.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/harbor/internal/config"
	_ "modernc.org/sqlite"
)

// DBFile is the database file name inside the base directory.
const DBFile = "harbor.db"

// ExportsDir is the default archive destination inside the base directory.
const ExportsDir = "exports"

// migration moves the schema from version-1 to version.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "kv records",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS kv (
			  key        TEXT PRIMARY KEY,
			  value      TEXT NOT NULL,
			  digest     TEXT NOT NULL,
			  updated_at INTEGER NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "export history",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS exports (
			  id          INTEGER PRIMARY KEY AUTOINCREMENT,
			  kind        TEXT NOT NULL,
			  target      TEXT NOT NULL,
			  files       INTEGER NOT NULL,
			  exported_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_exports_kind_time ON exports(kind, exported_at DESC)`,
		},
	},
}

// CurrentSchemaVersion is the version reached after all migrations.
var CurrentSchemaVersion = migrations[len(migrations)-1].version

// Init opens baseDir/harbor.db in WAL mode and brings its schema up to date.
// baseDir and its exports directory are created owner-only.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, ExportsDir)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		_ = os.Chmod(dir, 0700)
	}

	dbPath := filepath.Join(baseDir, DBFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := checkJournalMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db, CurrentSchemaVersion); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// ConfigurePool applies the connection limits set in cfg. Zero values keep
// the driver defaults.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies every migration above the stored version up to target.
// Each step runs in its own transaction together with its version bump.
func migrate(db *sql.DB, target int) error {
	current, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): set version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): commit: %w", m.version, m.name, err)
		}
	}
	return nil
}

func checkJournalMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return version, nil
}
