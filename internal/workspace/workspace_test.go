package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/harbor/internal/tree"
)

func TestMergeSettingsOver(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Settings
	}{
		{"empty object", `{}`, DefaultSettings()},
		{"partial", `{"theme":"light","fontSize":18}`, func() Settings {
			s := DefaultSettings()
			s.Theme = ThemeLight
			s.FontSize = 18
			return s
		}()},
		{"wrong types keep defaults", `{"fontSize":"big","wordWrap":"no","minimap":false}`, func() Settings {
			s := DefaultSettings()
			s.Minimap = false
			return s
		}()},
		{"null fields ignored", `{"theme":null,"tabSize":null}`, DefaultSettings()},
		{"unknown fields ignored", `{"lineNumbers":true,"tabSize":4}`, func() Settings {
			s := DefaultSettings()
			s.TabSize = 4
			return s
		}()},
		{"fractional size keeps default", `{"fontSize":14.5,"tabSize":2.5}`, DefaultSettings()},
		{"huge size keeps default", `{"fontSize":1e300,"tabSize":-1e300}`, DefaultSettings()},
		{"integral float accepted", `{"fontSize":16.0,"tabSize":4e0}`, func() Settings {
			s := DefaultSettings()
			s.FontSize = 16
			s.TabSize = 4
			return s
		}()},
		{"not an object", `[1,2]`, DefaultSettings()},
		{"garbage", `{{{`, DefaultSettings()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeSettingsOver(DefaultSettings(), []byte(tt.raw)); got != tt.want {
				t.Errorf("MergeSettingsOver(%s) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSettingsOverlay(t *testing.T) {
	s := DefaultSettings().Overlay(map[string]any{"theme": "light", "tabSize": 8})
	if s.Theme != ThemeLight || s.TabSize != 8 || s.FontSize != 14 {
		t.Errorf("Overlay = %+v", s)
	}
	if got := DefaultSettings().Overlay(nil); got != DefaultSettings() {
		t.Errorf("Overlay(nil) = %+v", got)
	}
}

func TestSerializeDeserialize(t *testing.T) {
	f := tree.Forest{tree.NewFile("a.js", "x")}
	id := f[0].NodeID()
	snap := &Snapshot{
		Files:       f,
		OpenTabs:    []Tab{{ID: id, Name: "a.js", Content: "x", Language: "javascript", FilePath: "a.js"}},
		ActiveTabID: id,
		Settings:    DefaultSettings(),
	}
	data, err := Serialize(snap)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	for _, key := range []string{`"files"`, `"openTabs"`, `"activeTabId"`, `"settings"`, `"isUnsaved"`, `"filePath"`} {
		if !strings.Contains(data, key) {
			t.Errorf("serialized snapshot missing %s: %s", key, data)
		}
	}

	got := Deserialize(data)
	if got == nil {
		t.Fatal("Deserialize returned nil")
	}
	if got.ActiveTabID != id || len(got.OpenTabs) != 1 || got.OpenTabs[0].FilePath != "a.js" {
		t.Errorf("round trip lost tab state: %+v", got)
	}
	if file, ok := tree.FindFile(got.Files, id); !ok || file.Text() != "x" {
		t.Errorf("round trip lost file: %+v", got.Files)
	}
}

func TestSerialize_NullActiveTab(t *testing.T) {
	data, err := Serialize(&Snapshot{Settings: DefaultSettings()})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(data, `"activeTabId":null`) {
		t.Errorf("empty active tab should encode as null: %s", data)
	}
	if !strings.Contains(data, `"files":[]`) || !strings.Contains(data, `"openTabs":[]`) {
		t.Errorf("empty collections should encode as arrays: %s", data)
	}
}

func TestDeserialize_MissingSettingsField(t *testing.T) {
	raw := `{"files":[],"openTabs":[],"activeTabId":null,"settings":{"theme":"light","fontSize":12}}`
	snap := Deserialize(raw)
	if snap == nil {
		t.Fatal("Deserialize returned nil")
	}
	if snap.Settings.Theme != ThemeLight || snap.Settings.FontSize != 12 {
		t.Errorf("stored settings lost: %+v", snap.Settings)
	}
	if !snap.Settings.FormatOnSave || snap.Settings.TabSize != 2 {
		t.Errorf("missing fields should take defaults: %+v", snap.Settings)
	}
	if snap.ActiveTabID != "" {
		t.Errorf("ActiveTabID = %q, want empty", snap.ActiveTabID)
	}
}

func TestDeserialize_NoSettings(t *testing.T) {
	snap := Deserialize(`{"files":[]}`)
	if snap == nil {
		t.Fatal("Deserialize returned nil")
	}
	if snap.Settings != DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults", snap.Settings)
	}
	if snap.OpenTabs == nil || snap.Files == nil {
		t.Error("collections should be non-nil")
	}
}

func TestDeserialize_Malformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `null`, `42`, `{"files":"nope"}`} {
		if snap := Deserialize(raw); snap != nil {
			t.Errorf("Deserialize(%q) = %+v, want nil", raw, snap)
		}
	}
}

// failingStore accepts loads but rejects every save.
type failingStore struct{ *MemoryStore }

func (failingStore) Save(context.Context, string, string) error {
	return fmt.Errorf("disk full")
}

func TestOpen_FirstRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ws, err := Open(ctx, store)
	require.NoError(t, err)
	require.True(t, ws.FirstRun())

	names := make([]string, 0, 4)
	for _, n := range ws.Files() {
		names = append(names, n.NodeName())
	}
	require.Equal(t, []string{"index.html", "styles.css", "script.js", "README.md"}, names)

	active, ok := ws.ActiveTab()
	require.True(t, ok)
	require.Equal(t, "sample-html", active.ID)
	require.Equal(t, "html", active.Language)
	require.Equal(t, "index.html", active.FilePath)

	_, stored, _ := store.Load(ctx, KeyWorkspace)
	require.True(t, stored, "first run should persist the seeded workspace")

	// Reopening loads the stored snapshot instead of reseeding.
	again, err := Open(ctx, store)
	require.NoError(t, err)
	require.False(t, again.FirstRun())
	require.Len(t, again.Tabs(), 1)
}

func TestOpen_CorruptSnapshotReseeds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, KeyWorkspace, "{not json"))

	ws, err := Open(ctx, store)
	require.NoError(t, err)
	require.True(t, ws.FirstRun())
	require.Len(t, ws.Files(), 4)
}

func TestOpen_WithDefaults(t *testing.T) {
	defaults := DefaultSettings()
	defaults.Theme = ThemeLight

	ws, err := Open(context.Background(), NewMemoryStore(), WithDefaults(defaults))
	require.NoError(t, err)
	require.Equal(t, ThemeLight, ws.Settings().Theme)
}

func TestOpen_SettingsRecordFallback(t *testing.T) {
	record := `{"theme":"light","fontSize":18}`
	tests := []struct {
		name     string
		snapshot string // "" leaves the workspace record unset
		want     Settings
	}{
		{
			name:     "snapshot without settings",
			snapshot: `{"files":[],"openTabs":[],"activeTabId":null}`,
			want:     Settings{Theme: ThemeLight, FontSize: 18, TabSize: 2, WordWrap: true, Minimap: true, AutoSave: true, FormatOnSave: true},
		},
		{
			name:     "snapshot with null settings",
			snapshot: `{"files":[],"openTabs":[],"activeTabId":null,"settings":null}`,
			want:     Settings{Theme: ThemeLight, FontSize: 18, TabSize: 2, WordWrap: true, Minimap: true, AutoSave: true, FormatOnSave: true},
		},
		{
			name: "first run",
			want: Settings{Theme: ThemeLight, FontSize: 18, TabSize: 2, WordWrap: true, Minimap: true, AutoSave: true, FormatOnSave: true},
		},
		{
			name:     "snapshot settings win",
			snapshot: `{"files":[],"openTabs":[],"activeTabId":null,"settings":{"fontSize":12}}`,
			want:     Settings{Theme: ThemeDark, FontSize: 12, TabSize: 2, WordWrap: true, Minimap: true, AutoSave: true, FormatOnSave: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := NewMemoryStore()
			require.NoError(t, store.Save(ctx, KeySettings, record))
			if tt.snapshot != "" {
				require.NoError(t, store.Save(ctx, KeyWorkspace, tt.snapshot))
			}

			ws, err := Open(ctx, store)
			require.NoError(t, err)
			require.Equal(t, tt.want, ws.Settings())
		})
	}
}

func openEmpty(t *testing.T) (*Workspace, *MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	data, err := Serialize(&Snapshot{Settings: DefaultSettings()})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, KeyWorkspace, data))

	ws, err := Open(ctx, store)
	require.NoError(t, err)
	require.False(t, ws.FirstRun())
	return ws, store
}

func TestCreateFile_Defaults(t *testing.T) {
	ctx := context.Background()
	ws, _ := openEmpty(t)

	file, ok, err := ws.CreateFile(ctx, tree.Root, "new.js", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, DefaultFileContent, file.Text())

	empty := ""
	blank, ok, err := ws.CreateFile(ctx, tree.Root, "blank.txt", &empty)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, blank.Content)
	require.Equal(t, "", *blank.Content)

	// A file cannot hold children.
	_, ok, err = ws.CreateFolder(ctx, file.ID, "nested")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWorkspace_TabLifecycle(t *testing.T) {
	ctx := context.Background()
	ws, store := openEmpty(t)

	src, _, err := ws.CreateFolder(ctx, tree.Root, "src")
	require.NoError(t, err)
	a, _, err := ws.CreateFile(ctx, src.ID, "a.js", nil)
	require.NoError(t, err)
	b, _, err := ws.CreateFile(ctx, src.ID, "b.css", nil)
	require.NoError(t, err)
	c, _, err := ws.CreateFile(ctx, tree.Root, "c.md", nil)
	require.NoError(t, err)

	// Open all three; no duplicates on reopen.
	for _, id := range []string{c.ID, a.ID, b.ID, a.ID} {
		_, ok, err := ws.OpenFile(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Len(t, ws.Tabs(), 3)
	active, _ := ws.ActiveTab()
	require.Equal(t, a.ID, active.ID)
	require.Equal(t, "src/a.js", active.FilePath)

	// Folders cannot be opened.
	_, ok, err := ws.OpenFile(ctx, src.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// Edit marks node and tab unsaved.
	ok, err = ws.UpdateContent(ctx, a.ID, "let x = 2;")
	require.NoError(t, err)
	require.True(t, ok)
	active, _ = ws.ActiveTab()
	require.True(t, active.Unsaved)
	require.Equal(t, "let x = 2;", active.Content)

	// Save with empty id saves the active tab.
	saved, ok, err := ws.Save(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, a.ID, saved)
	active, _ = ws.ActiveTab()
	require.False(t, active.Unsaved)
	file, _ := tree.FindFile(ws.Files(), a.ID)
	require.False(t, file.Unsaved)

	// Renaming the folder does not rewrite tab paths.
	_, err = ws.Rename(ctx, src.ID, "lib")
	require.NoError(t, err)
	active, _ = ws.ActiveTab()
	require.Equal(t, "src/a.js", active.FilePath)

	// Renaming the file patches only the tab name.
	_, err = ws.Rename(ctx, a.ID, "main.js")
	require.NoError(t, err)
	active, _ = ws.ActiveTab()
	require.Equal(t, "main.js", active.Name)
	require.Equal(t, "src/a.js", active.FilePath)

	// Deleting the folder closes a and b; first remaining tab becomes active.
	closed, ok, err := ws.Delete(ctx, src.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, []string{a.ID, b.ID}, closed)
	active, ok = ws.ActiveTab()
	require.True(t, ok)
	require.Equal(t, c.ID, active.ID)

	// Closing the last tab leaves nothing active.
	ok, err = ws.CloseTab(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok = ws.ActiveTab()
	require.False(t, ok)

	// Every change is persisted.
	raw, _, _ := store.Load(ctx, KeyWorkspace)
	snap := Deserialize(raw)
	require.NotNil(t, snap)
	require.Empty(t, snap.OpenTabs)
	require.Equal(t, "", snap.ActiveTabID)
	require.Nil(t, tree.Find(snap.Files, src.ID))
}

func TestCloseTab_ActivatesLast(t *testing.T) {
	ctx := context.Background()
	ws, _ := openEmpty(t)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		f, _, err := ws.CreateFile(ctx, tree.Root, name, nil)
		require.NoError(t, err)
		_, _, err = ws.OpenFile(ctx, f.ID)
		require.NoError(t, err)
		ids = append(ids, f.ID)
	}
	_, err := ws.Activate(ctx, ids[0])
	require.NoError(t, err)

	ok, err := ws.CloseTab(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	active, _ := ws.ActiveTab()
	require.Equal(t, ids[2], active.ID)

	ok, err = ws.CloseTab(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = ws.Activate(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReplaceForest_ClearsTabs(t *testing.T) {
	ctx := context.Background()
	ws, err := Open(ctx, NewMemoryStore())
	require.NoError(t, err)
	require.NotEmpty(t, ws.Tabs())

	require.NoError(t, ws.ReplaceForest(ctx, tree.Forest{tree.NewFile("x.txt", "x")}))
	require.Empty(t, ws.Tabs())
	_, ok := ws.ActiveTab()
	require.False(t, ok)
	require.Len(t, ws.Files(), 1)
}

func TestUpdateSettings_WritesBothRecords(t *testing.T) {
	ctx := context.Background()
	ws, store := openEmpty(t)

	s, err := ws.UpdateSettings(ctx, func(s *Settings) {
		s.Theme = ThemeLight
		s.FontSize = 16
	})
	require.NoError(t, err)
	require.Equal(t, ThemeLight, s.Theme)

	raw, ok, _ := store.Load(ctx, KeySettings)
	require.True(t, ok)
	var stored Settings
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Equal(t, 16, stored.FontSize)

	raw, _, _ = store.Load(ctx, KeyWorkspace)
	require.Equal(t, ThemeLight, Deserialize(raw).Settings.Theme)
}

func TestWorkspace_PersistErrorKeepsChange(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	data, _ := Serialize(&Snapshot{Settings: DefaultSettings()})
	require.NoError(t, mem.Save(ctx, KeyWorkspace, data))

	ws, err := Open(ctx, failingStore{mem})
	require.NoError(t, err)

	file, ok, err := ws.CreateFile(ctx, tree.Root, "a.txt", nil)
	require.Error(t, err)
	require.True(t, ok)
	require.NotNil(t, tree.Find(ws.Files(), file.ID))
}

func TestNoOps_DoNotPersist(t *testing.T) {
	ctx := context.Background()
	ws, store := openEmpty(t)
	before, _, _ := store.Load(ctx, KeyWorkspace)

	_, ok, err := ws.Delete(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = ws.Rename(ctx, "missing", "x")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = ws.UpdateContent(ctx, "missing", "x")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = ws.Save(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)

	after, _, _ := store.Load(ctx, KeyWorkspace)
	require.Equal(t, before, after)
}
