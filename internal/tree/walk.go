package tree

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SkipChildren can be returned from a WalkFunc to skip a folder's subtree.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node with its "/"-joined path.
type WalkFunc func(path string, n Node) error

// Walk visits every node in pre-order, parents before children and siblings
// in insertion order. Any error other than SkipChildren stops the walk and is
// returned.
func Walk(f Forest, fn WalkFunc) error {
	return walk(f, "", fn)
}

func walk(f Forest, prefix string, fn WalkFunc) error {
	for _, n := range f {
		path := n.NodeName()
		if prefix != "" {
			path = prefix + "/" + path
		}
		err := fn(path, n)
		if err == SkipChildren {
			continue
		}
		if err != nil {
			return err
		}
		if folder, ok := n.(*Folder); ok {
			if err := walk(folder.Children, path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindByPath resolves a "/"-separated path by taking the first node with a
// matching name at each level.
func FindByPath(f Forest, path string) Node {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	current := f
	for i, part := range parts {
		var match Node
		for _, n := range current {
			if n.NodeName() == part {
				match = n
				break
			}
		}
		if match == nil {
			return nil
		}
		if i == len(parts)-1 {
			return match
		}
		folder, ok := match.(*Folder)
		if !ok {
			return nil
		}
		current = folder.Children
	}
	return nil
}

// FileIDs returns the ids of all files in the subtree rooted at id, including
// the node itself when it is a file.
func FileIDs(f Forest, id string) []string {
	target := Find(f, id)
	if target == nil {
		return nil
	}
	var ids []string
	_ = Walk(Forest{target}, func(_ string, n Node) error {
		if n.Kind() == KindFile {
			ids = append(ids, n.NodeID())
		}
		return nil
	})
	return ids
}

// Match is a node found by Glob.
type Match struct {
	Path string
	Node Node
}

// Glob returns every node whose path matches a doublestar pattern
// (e.g. "src/**/*.js"), in walk order.
func Glob(f Forest, pattern string) ([]Match, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	var matches []Match
	err := Walk(f, func(path string, n Node) error {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, Match{Path: path, Node: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Stats summarizes a forest.
type Stats struct {
	Files   int `json:"files" yaml:"files"`
	Folders int `json:"folders" yaml:"folders"`
	Bytes   int `json:"bytes" yaml:"bytes"`
	Unsaved int `json:"unsaved" yaml:"unsaved"`
}

// Count walks f and tallies nodes and content bytes.
func Count(f Forest) Stats {
	var s Stats
	_ = Walk(f, func(_ string, n Node) error {
		switch n := n.(type) {
		case *File:
			s.Files++
			s.Bytes += len(n.Text())
		case *Folder:
			s.Folders++
		}
		if n.IsUnsaved() {
			s.Unsaved++
		}
		return nil
	})
	return s
}
