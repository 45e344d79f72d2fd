// Package gist maps the workspace forest to and from GitHub Gists.
//
// A gist is a flat set of files. Folder structure survives as "/" inside
// file names: Flatten joins paths on the way out and Reconstruct splits them
// on the way in.
package gist

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// File is one gist entry.
type File struct {
	Filename string
	Content  string
}

// Files is an ordered gist file set. It encodes as the JSON object the Gist
// API expects ({"name": {"content": "..."}}) and keeps key order in both
// directions.
type Files []File

// Get returns the content stored under name. When name repeats, the last
// entry wins, as it does in the encoded object.
func (fs Files) Get(name string) (string, bool) {
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].Filename == name {
			return fs[i].Content, true
		}
	}
	return "", false
}

// Collapse merges repeated filenames the way assigning keys of an object
// does: a name keeps the position of its first occurrence and the content of
// its last.
func (fs Files) Collapse() Files {
	if len(fs) == 0 {
		return fs
	}
	index := make(map[string]int, len(fs))
	out := make(Files, 0, len(fs))
	for _, f := range fs {
		if i, ok := index[f.Filename]; ok {
			out[i].Content = f.Content
			continue
		}
		index[f.Filename] = len(out)
		out = append(out, f)
	}
	return out
}

// Names returns the filenames in order.
func (fs Files) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Filename
	}
	return names
}

type wireContent struct {
	Content string `json:"content"`
}

// MarshalJSON writes the files as a JSON object in slice order. Repeated
// filenames are merged as by Collapse.
func (fs Files) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs.Collapse() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.Filename)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(wireContent{Content: f.Content})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of file entries in document order. Null
// entries are skipped.
func (fs *Files) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode gist files: %w", err)
	}
	if tok == nil {
		*fs = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode gist files: expected object, got %v", tok)
	}

	var out Files
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode gist files: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode gist files: expected key, got %v", tok)
		}
		var entry *struct {
			Filename string `json:"filename"`
			Content  string `json:"content"`
		}
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("decode gist file %q: %w", name, err)
		}
		if entry == nil {
			continue
		}
		out = append(out, File{Filename: name, Content: entry.Content})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode gist files: %w", err)
	}
	*fs = out
	return nil
}
