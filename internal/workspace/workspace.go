// Package workspace owns the editor state: the file forest, open tabs, the
// active tab and settings. Every change is written through to a Store as a
// full snapshot.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/hpungsan/harbor/internal/tree"
)

// DefaultFileContent is the body given to files created without content.
const DefaultFileContent = "// New file\n"

// Workspace is the single owner of editor state. Methods are safe for
// concurrent use. When persisting fails the in-memory change is kept and the
// error is returned.
type Workspace struct {
	mu       sync.Mutex
	store    Store
	defaults Settings

	files    tree.Forest
	tabs     []Tab
	active   string
	settings Settings
	firstRun bool
}

// Option configures Open.
type Option func(*Workspace)

// WithDefaults sets the settings used to fill gaps in stored records.
func WithDefaults(s Settings) Option {
	return func(w *Workspace) { w.defaults = s }
}

// Open loads the stored snapshot. When none exists, or it cannot be parsed,
// the sample project is seeded with index.html open and FirstRun reports true.
// Settings come from the snapshot; the settings record is the fallback when
// the snapshot has none.
func Open(ctx context.Context, store Store, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		store:    store,
		defaults: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(w)
	}

	raw, ok, err := store.Load(ctx, KeyWorkspace)
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	var snap *Snapshot
	if ok {
		snap = DeserializeWithDefaults(raw, w.defaults)
		if snap == nil {
			log.Printf("workspace: stored snapshot is unreadable, starting fresh")
		}
	}
	if snap != nil {
		w.files = snap.Files
		w.tabs = snap.OpenTabs
		w.active = snap.ActiveTabID
		w.settings = snap.Settings
		if !hasSettings(raw) {
			if w.settings, err = w.loadSettingsRecord(ctx); err != nil {
				return nil, err
			}
		}
		return w, nil
	}

	w.firstRun = true
	w.files = SampleProject()
	w.tabs = []Tab{}
	if w.settings, err = w.loadSettingsRecord(ctx); err != nil {
		return nil, err
	}
	if n := tree.FindByPath(w.files, "index.html"); n != nil {
		w.openLocked(n.NodeID())
	}
	return w, w.persistLocked(ctx)
}

// loadSettingsRecord reads the separate settings record over the defaults.
// It is consulted only when the snapshot carries no settings.
func (w *Workspace) loadSettingsRecord(ctx context.Context) (Settings, error) {
	raw, ok, err := w.store.Load(ctx, KeySettings)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return w.defaults, nil
	}
	return MergeSettingsOver(w.defaults, []byte(raw)), nil
}

// FirstRun reports whether Open seeded the sample project.
func (w *Workspace) FirstRun() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstRun
}

// Files returns the current forest. The forest is immutable; callers must use
// the tree package to derive modified copies.
func (w *Workspace) Files() tree.Forest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files
}

// Tabs returns a copy of the open tabs.
func (w *Workspace) Tabs() []Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Tab(nil), w.tabs...)
}

// ActiveTab returns the active tab, if any.
func (w *Workspace) ActiveTab() (Tab, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.tabIndex(w.active); i >= 0 {
		return w.tabs[i], true
	}
	return Tab{}, false
}

// Settings returns the current settings.
func (w *Workspace) Settings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// Snapshot returns the full current state.
func (w *Workspace) Snapshot() *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() *Snapshot {
	return &Snapshot{
		Files:       w.files,
		OpenTabs:    append([]Tab{}, w.tabs...),
		ActiveTabID: w.active,
		Settings:    w.settings,
	}
}

// CreateFile adds a file under parentID (tree.Root for the top level). A nil
// content uses DefaultFileContent. The bool is false when the parent does not
// exist or is not a folder.
func (w *Workspace) CreateFile(ctx context.Context, parentID, name string, content *string) (*tree.File, bool, error) {
	body := DefaultFileContent
	if content != nil {
		body = *content
	}
	file := tree.NewFile(name, body)
	ok, err := w.insert(ctx, parentID, file)
	if !ok {
		return nil, false, err
	}
	return file, true, err
}

// CreateFolder adds an empty folder under parentID.
func (w *Workspace) CreateFolder(ctx context.Context, parentID, name string) (*tree.Folder, bool, error) {
	folder := tree.NewFolder(name)
	ok, err := w.insert(ctx, parentID, folder)
	if !ok {
		return nil, false, err
	}
	return folder, true, err
}

// Insert adds a prepared node, such as an imported subtree, under parentID.
func (w *Workspace) Insert(ctx context.Context, parentID string, n tree.Node) (bool, error) {
	return w.insert(ctx, parentID, n)
}

func (w *Workspace) insert(ctx context.Context, parentID string, n tree.Node) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, ok := tree.Insert(w.files, parentID, n)
	if !ok {
		return false, nil
	}
	w.files = files
	return true, w.persistLocked(ctx)
}

// Delete removes a node and its subtree, closing the tab of every file that
// goes with it. If the active tab closes, the first remaining tab becomes
// active. It returns the ids of the closed tabs.
func (w *Workspace) Delete(ctx context.Context, id string) ([]string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doomed := tree.FileIDs(w.files, id)
	files, ok := tree.Remove(w.files, id)
	if !ok {
		return nil, false, nil
	}
	w.files = files

	remove := make(map[string]bool, len(doomed))
	for _, fid := range doomed {
		remove[fid] = true
	}
	var closed []string
	kept := make([]Tab, 0, len(w.tabs))
	for _, tab := range w.tabs {
		if remove[tab.ID] {
			closed = append(closed, tab.ID)
			continue
		}
		kept = append(kept, tab)
	}
	w.tabs = kept
	if remove[w.active] {
		w.active = ""
		if len(kept) > 0 {
			w.active = kept[0].ID
		}
	}
	return closed, true, w.persistLocked(ctx)
}

// Rename changes a node's name. Only the tab with the same id is patched, and
// only its name; tab paths are left as they were.
func (w *Workspace) Rename(ctx context.Context, id, name string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, ok := tree.Rename(w.files, id, name)
	if !ok {
		return false, nil
	}
	w.files = files
	if i := w.tabIndex(id); i >= 0 {
		w.tabs[i].Name = name
	}
	return true, w.persistLocked(ctx)
}

// UpdateContent replaces a file's content and marks it and its tab unsaved.
func (w *Workspace) UpdateContent(ctx context.Context, id, content string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, ok := tree.UpdateContent(w.files, id, content)
	if !ok {
		return false, nil
	}
	w.files = files
	if i := w.tabIndex(id); i >= 0 {
		w.tabs[i].Content = content
		w.tabs[i].Unsaved = true
	}
	return true, w.persistLocked(ctx)
}

// Save clears the unsaved flag on a node and its tab. An empty id saves the
// active tab. It returns the id that was saved.
func (w *Workspace) Save(ctx context.Context, id string) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if id == "" {
		id = w.active
	}
	if id == "" {
		return "", false, nil
	}
	files, ok := tree.ClearUnsaved(w.files, id)
	if !ok {
		return id, false, nil
	}
	w.files = files
	if i := w.tabIndex(id); i >= 0 {
		w.tabs[i].Unsaved = false
	}
	return id, true, w.persistLocked(ctx)
}

// OpenFile opens a tab for a file and makes it active. An already open tab is
// just activated. Folders and unknown ids are not opened.
func (w *Workspace) OpenFile(ctx context.Context, id string) (Tab, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tab, ok := w.openLocked(id)
	if !ok {
		return Tab{}, false, nil
	}
	return tab, true, w.persistLocked(ctx)
}

func (w *Workspace) openLocked(id string) (Tab, bool) {
	if i := w.tabIndex(id); i >= 0 {
		w.active = id
		return w.tabs[i], true
	}
	file, ok := tree.FindFile(w.files, id)
	if !ok {
		return Tab{}, false
	}
	path, ok := tree.FindPath(w.files, id)
	if !ok {
		path = file.Name
	}
	tab := Tab{
		ID:       file.ID,
		Name:     file.Name,
		Content:  file.Text(),
		Language: tree.Language(file.Name),
		Unsaved:  file.Unsaved,
		FilePath: path,
	}
	w.tabs = append(w.tabs, tab)
	w.active = id
	return tab, true
}

// CloseTab closes a tab. If it was active, the last remaining tab becomes
// active.
func (w *Workspace) CloseTab(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.tabIndex(id)
	if i < 0 {
		return false, nil
	}
	w.tabs = append(w.tabs[:i:i], w.tabs[i+1:]...)
	if w.active == id {
		w.active = ""
		if n := len(w.tabs); n > 0 {
			w.active = w.tabs[n-1].ID
		}
	}
	return true, w.persistLocked(ctx)
}

// Activate makes an open tab active.
func (w *Workspace) Activate(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tabIndex(id) < 0 {
		return false, nil
	}
	w.active = id
	return true, w.persistLocked(ctx)
}

// ReplaceForest swaps in an imported forest. All tabs close.
func (w *Workspace) ReplaceForest(ctx context.Context, f tree.Forest) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f == nil {
		f = tree.Forest{}
	}
	w.files = f
	w.tabs = []Tab{}
	w.active = ""
	return w.persistLocked(ctx)
}

// UpdateSettings applies fn to a copy of the settings and stores the result,
// both inside the snapshot and as the separate settings record.
func (w *Workspace) UpdateSettings(ctx context.Context, fn func(*Settings)) (Settings, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.settings
	fn(&s)
	w.settings = s

	if err := w.persistLocked(ctx); err != nil {
		return s, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return s, fmt.Errorf("encode settings: %w", err)
	}
	if err := w.store.Save(ctx, KeySettings, string(data)); err != nil {
		return s, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

func (w *Workspace) tabIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, tab := range w.tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) persistLocked(ctx context.Context) error {
	data, err := Serialize(w.snapshotLocked())
	if err != nil {
		return err
	}
	if err := w.store.Save(ctx, KeyWorkspace, data); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}
