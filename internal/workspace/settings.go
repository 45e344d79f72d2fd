package workspace

import (
	"encoding/json"
	"math"
)

// Themes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings are the editor preferences.
type Settings struct {
	Theme        string `json:"theme" yaml:"theme"`
	FontSize     int    `json:"fontSize" yaml:"fontSize"`
	TabSize      int    `json:"tabSize" yaml:"tabSize"`
	WordWrap     bool   `json:"wordWrap" yaml:"wordWrap"`
	Minimap      bool   `json:"minimap" yaml:"minimap"`
	AutoSave     bool   `json:"autoSave" yaml:"autoSave"`
	FormatOnSave bool   `json:"formatOnSave" yaml:"formatOnSave"`
}

// DefaultSettings returns the built-in preferences.
func DefaultSettings() Settings {
	return Settings{
		Theme:        ThemeDark,
		FontSize:     14,
		TabSize:      2,
		WordWrap:     true,
		Minimap:      true,
		AutoSave:     true,
		FormatOnSave: true,
	}
}

// MergeSettingsOver overlays the fields present in raw onto base, one field
// at a time. Unknown fields are ignored and a field whose value has the wrong
// type, or a size that is not a whole number, keeps base's value. It never fails: raw that is not a JSON object
// leaves base untouched.
func MergeSettingsOver(base Settings, raw []byte) Settings {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base
	}

	out := base
	value := func(key string) (json.RawMessage, bool) {
		v, ok := fields[key]
		return v, ok && string(v) != "null"
	}
	setString := func(key string, dst *string) {
		var str string
		if v, ok := value(key); ok && json.Unmarshal(v, &str) == nil {
			*dst = str
		}
	}
	// Numbers must be integral and fit in 32 bits; 14.0 is accepted, 14.5
	// and 1e300 keep base's value.
	setInt := func(key string, dst *int) {
		var n float64
		v, ok := value(key)
		if !ok || json.Unmarshal(v, &n) != nil {
			return
		}
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return
		}
		*dst = int(n)
	}
	setBool := func(key string, dst *bool) {
		var b bool
		if v, ok := value(key); ok && json.Unmarshal(v, &b) == nil {
			*dst = b
		}
	}

	setString("theme", &out.Theme)
	setInt("fontSize", &out.FontSize)
	setInt("tabSize", &out.TabSize)
	setBool("wordWrap", &out.WordWrap)
	setBool("minimap", &out.Minimap)
	setBool("autoSave", &out.AutoSave)
	setBool("formatOnSave", &out.FormatOnSave)
	return out
}

// Overlay applies a partial settings map (as found in config files) onto s.
func (s Settings) Overlay(partial map[string]any) Settings {
	if len(partial) == 0 {
		return s
	}
	raw, err := json.Marshal(partial)
	if err != nil {
		return s
	}
	return MergeSettingsOver(s, raw)
}
