package ops

import (
	"strings"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
)

// Result limits
const (
	DefaultSearchLimit  = 50
	MaxSearchLimit      = 500
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// Settings bounds accepted by UpdateSettings.
const (
	MinFontSize = 8
	MaxFontSize = 40
	MinTabSize  = 1
	MaxTabSize  = 8
)

// Address represents a validated node address.
type Address struct {
	ByID bool
	ID   string
	Path string // "/"-separated, no leading or trailing slash
}

// ValidateAddress validates addressing parameters.
// Rules:
// - id and path are mutually exclusive
// - one of them is required
func ValidateAddress(id, path string) (*Address, error) {
	id = strings.TrimSpace(id)
	path = strings.Trim(strings.TrimSpace(path), "/")

	if id != "" && path != "" {
		return nil, errors.NewInvalidRequest("specify either id or path, not both")
	}
	if id == "" && path == "" {
		return nil, errors.NewInvalidRequest("must specify either id or path")
	}
	if id != "" {
		return &Address{ByID: true, ID: id}, nil
	}
	return &Address{Path: path}, nil
}

// Resolve turns an address into a node id. An id is returned as given, so
// operations on an unknown id become no-ops. A path that matches nothing is
// NOT_FOUND.
func (a *Address) Resolve(f tree.Forest) (string, error) {
	if a.ByID {
		return a.ID, nil
	}
	n := tree.FindByPath(f, a.Path)
	if n == nil {
		return "", errors.NewNotFound(a.Path)
	}
	return n.NodeID(), nil
}

// resolve validates and resolves in one step.
func resolve(f tree.Forest, id, path string) (string, error) {
	addr, err := ValidateAddress(id, path)
	if err != nil {
		return "", err
	}
	return addr.Resolve(f)
}

// NodeInfo is the summary of a node returned by most operations.
type NodeInfo struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Path     string `json:"path" yaml:"path"`
	Unsaved  bool   `json:"is_unsaved" yaml:"is_unsaved"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Size     int    `json:"size,omitempty" yaml:"size,omitempty"`
	Children int    `json:"children,omitempty" yaml:"children,omitempty"`
}

// describe builds a NodeInfo for n found at path.
func describe(path string, n tree.Node) NodeInfo {
	info := NodeInfo{
		ID:      n.NodeID(),
		Name:    n.NodeName(),
		Type:    string(n.Kind()),
		Path:    path,
		Unsaved: n.IsUnsaved(),
	}
	switch n := n.(type) {
	case *tree.File:
		info.Language = tree.Language(n.Name)
		info.Size = len(n.Text())
	case *tree.Folder:
		info.Children = len(n.Children)
	}
	return info
}

// describeID builds a NodeInfo for the node with id, computing its path.
func describeID(f tree.Forest, id string) (NodeInfo, bool) {
	n := tree.Find(f, id)
	if n == nil {
		return NodeInfo{}, false
	}
	path, ok := tree.FindPath(f, id)
	if !ok {
		path = n.NodeName()
	}
	return describe(path, n), true
}

// validateName rejects names the tree cannot address by path.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	if strings.ContainsAny(name, "/\\") {
		return "", errors.NewInvalidRequest("name must not contain path separators")
	}
	if name == "." || name == ".." {
		return "", errors.NewInvalidRequest("name must not be . or ..")
	}
	return name, nil
}
