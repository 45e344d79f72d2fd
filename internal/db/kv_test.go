package db

import (
	"context"
	"testing"
	"time"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/workspace"
)

var _ workspace.Store = (*KV)(nil)

func TestKV_SaveLoad(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	kv := NewKV(database)

	if _, ok, err := kv.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("Load(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	if err := kv.Save(ctx, "k", "v1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, ok, err := kv.Load(ctx, "k")
	if err != nil || !ok || got != "v1" {
		t.Fatalf("Load = %q, %v, %v; want v1", got, ok, err)
	}

	if err := kv.Save(ctx, "k", "v2"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	rec, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Value != "v2" || rec.Digest != Digest("v2") {
		t.Errorf("record = %+v", rec)
	}
}

func TestKV_SameValueKeepsTimestamp(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	kv := NewKV(database)

	if err := kv.Save(ctx, "k", "same"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first, _ := kv.Get(ctx, "k")
	time.Sleep(5 * time.Millisecond)
	if err := kv.Save(ctx, "k", "same"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, _ := kv.Get(ctx, "k")
	if first.UpdatedAt != second.UpdatedAt {
		t.Errorf("UpdatedAt changed on identical save: %d -> %d", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestKV_BacksWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx := context.Background()
	ws, err := workspace.Open(ctx, NewKV(database))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !ws.FirstRun() {
		t.Fatal("expected first run on empty database")
	}
	if _, _, err := ws.CreateFile(ctx, "", "notes.txt", nil); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	database.Close()

	database, err = Init(tmpDir)
	if err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	defer database.Close()

	ws, err = workspace.Open(ctx, NewKV(database))
	if err != nil {
		t.Fatalf("re-Open failed: %v", err)
	}
	if ws.FirstRun() {
		t.Error("second open should load the stored workspace")
	}
	if len(ws.Files()) != 5 {
		t.Errorf("Files = %d, want 5 (sample + notes.txt)", len(ws.Files()))
	}
}

func TestExportHistory(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if _, err := LastExport(ctx, database, ExportGist); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("LastExport on empty table error = %v, want NOT_FOUND", err)
	}

	records := []*ExportRecord{
		{Kind: ExportArchive, Target: "/tmp/a.zip", Files: 3, ExportedAt: 100},
		{Kind: ExportGist, Target: "g1", Files: 2, ExportedAt: 200},
		{Kind: ExportGist, Target: "g2", Files: 4, ExportedAt: 300},
	}
	for _, r := range records {
		if err := RecordExport(ctx, database, r); err != nil {
			t.Fatalf("RecordExport failed: %v", err)
		}
		if r.ID == 0 {
			t.Error("RecordExport should set ID")
		}
	}

	all, err := ListExports(ctx, database, "", 0)
	if err != nil {
		t.Fatalf("ListExports failed: %v", err)
	}
	if len(all) != 3 || all[0].Target != "g2" {
		t.Errorf("ListExports = %+v", all)
	}

	gists, err := ListExports(ctx, database, ExportGist, 1)
	if err != nil {
		t.Fatalf("ListExports failed: %v", err)
	}
	if len(gists) != 1 || gists[0].Target != "g2" {
		t.Errorf("ListExports(gist, 1) = %+v", gists)
	}

	last, err := LastExport(ctx, database, ExportGist)
	if err != nil {
		t.Fatalf("LastExport failed: %v", err)
	}
	if last.Target != "g2" || last.Files != 4 {
		t.Errorf("LastExport = %+v", last)
	}
}
