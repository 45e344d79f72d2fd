package workspace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/harbor/internal/tree"
)

// Tab is an open editor buffer onto a file. FilePath is computed when the tab
// opens and is not updated by later renames.
type Tab struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Content  string `json:"content" yaml:"content"`
	Language string `json:"language" yaml:"language"`
	Unsaved  bool   `json:"isUnsaved" yaml:"isUnsaved"`
	FilePath string `json:"filePath" yaml:"filePath"`
}

// Snapshot is the complete persisted workspace state.
type Snapshot struct {
	Files    tree.Forest
	OpenTabs []Tab

	// ActiveTabID is "" when no tab is active.
	ActiveTabID string

	Settings Settings
}

// wireSnapshot is the stored record layout.
type wireSnapshot struct {
	Files       tree.Forest     `json:"files"`
	OpenTabs    []Tab           `json:"openTabs"`
	ActiveTabID *string         `json:"activeTabId"`
	Settings    json.RawMessage `json:"settings"`
}

// Serialize encodes the full snapshot.
func Serialize(s *Snapshot) (string, error) {
	if s == nil {
		return "", fmt.Errorf("serialize: nil snapshot")
	}
	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return "", fmt.Errorf("serialize settings: %w", err)
	}
	w := wireSnapshot{
		Files:    s.Files,
		OpenTabs: s.OpenTabs,
		Settings: settings,
	}
	if w.Files == nil {
		w.Files = tree.Forest{}
	}
	if w.OpenTabs == nil {
		w.OpenTabs = []Tab{}
	}
	if s.ActiveTabID != "" {
		id := s.ActiveTabID
		w.ActiveTabID = &id
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	return string(data), nil
}

// Deserialize decodes a stored snapshot. It returns nil when the record cannot
// be parsed. Settings are merged over DefaultSettings; files, tabs and the
// active id are taken as stored.
func Deserialize(data string) *Snapshot {
	return DeserializeWithDefaults(data, DefaultSettings())
}

// DeserializeWithDefaults is Deserialize with caller-supplied defaults.
func DeserializeWithDefaults(data string, defaults Settings) *Snapshot {
	if strings.TrimSpace(data) == "null" {
		return nil
	}
	var w wireSnapshot
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil
	}
	s := &Snapshot{
		Files:    w.Files,
		OpenTabs: w.OpenTabs,
		Settings: MergeSettingsOver(defaults, w.Settings),
	}
	if s.Files == nil {
		s.Files = tree.Forest{}
	}
	if s.OpenTabs == nil {
		s.OpenTabs = []Tab{}
	}
	if w.ActiveTabID != nil {
		s.ActiveTabID = *w.ActiveTabID
	}
	return s
}

// hasSettings reports whether a stored snapshot carries a non-null settings
// field.
func hasSettings(data string) bool {
	var rec struct {
		Settings json.RawMessage `json:"settings"`
	}
	if json.Unmarshal([]byte(data), &rec) != nil {
		return false
	}
	return len(rec.Settings) > 0 && string(rec.Settings) != "null"
}
