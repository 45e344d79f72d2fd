// Package tree implements the workspace file tree: an ordered forest of File
// and Folder nodes with pure find/insert/remove/rename/update operations.
//
// Nodes are treated as immutable values. Every mutating operation returns a
// new Forest that shares untouched subtrees with its input; the input is
// never written to.
package tree

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind distinguishes the two node variants.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Root is the parent id used to insert at the top level of a forest.
const Root = ""

// Node is a File or a Folder. The set of implementations is closed.
type Node interface {
	NodeID() string
	NodeName() string
	Kind() Kind
	IsUnsaved() bool
	node()
}

// Forest is the top-level ordered sequence of nodes.
type Forest []Node

// File is a leaf node holding text content.
type File struct {
	// ID is a ULID assigned at creation
	ID string

	// Name is the display name (not required to be a valid path segment)
	Name string

	// Content is nil when the file has no loaded content, as opposed to ""
	Content *string

	// Unsaved is true once content diverges from the last save
	Unsaved bool
}

// Folder is an interior node holding ordered children.
type Folder struct {
	ID       string
	Name     string
	Children Forest
	Unsaved  bool
}

func (f *File) NodeID() string   { return f.ID }
func (f *File) NodeName() string { return f.Name }
func (f *File) Kind() Kind       { return KindFile }
func (f *File) IsUnsaved() bool  { return f.Unsaved }
func (f *File) node()            {}

// Text returns the file content, or "" when none is loaded.
func (f *File) Text() string {
	if f.Content == nil {
		return ""
	}
	return *f.Content
}

func (f *Folder) NodeID() string   { return f.ID }
func (f *Folder) NodeName() string { return f.Name }
func (f *Folder) Kind() Kind       { return KindFolder }
func (f *Folder) IsUnsaved() bool  { return f.Unsaved }
func (f *Folder) node()            {}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a fresh ULID. IDs from one process are strictly increasing,
// so they never collide.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), idEntropy)
	if err != nil {
		// Monotonic overflow within a single millisecond: reseed.
		idEntropy = ulid.Monotonic(rand.Reader, 0)
		id = ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy)
	}
	return id.String()
}

// NewFile creates a file node with a fresh id.
func NewFile(name, content string) *File {
	return &File{
		ID:      NewID(),
		Name:    name,
		Content: &content,
	}
}

// NewFolder creates an empty folder node with a fresh id.
func NewFolder(name string) *Folder {
	return &Folder{
		ID:       NewID(),
		Name:     name,
		Children: Forest{},
	}
}

// New creates a node of the given kind. content is ignored for folders.
func New(name string, kind Kind, content string) Node {
	if kind == KindFolder {
		return NewFolder(name)
	}
	return NewFile(name, content)
}

// ParseKind converts a user-supplied kind string.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindFile, KindFolder:
		return Kind(s), true
	}
	return "", false
}
