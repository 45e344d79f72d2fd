package ops

import (
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// TreeInput contains parameters for the Tree operation.
type TreeInput struct {
	// Root limits the listing to the subtree at this path. Empty means the
	// whole forest.
	Root string
}

// TreeOutput contains the result of the Tree operation.
type TreeOutput struct {
	Files tree.Forest `json:"files" yaml:"-"`
	Nodes []NodeInfo  `json:"-" yaml:"nodes"`
	Stats tree.Stats  `json:"stats" yaml:"stats"`
}

// Tree returns the forest (or one subtree) with its counts. Nodes is the
// flattened pre-order listing used for YAML output.
func Tree(ws *workspace.Workspace, input TreeInput) (*TreeOutput, error) {
	files := ws.Files()
	prefix := ""
	if input.Root != "" {
		id, err := resolve(files, "", input.Root)
		if err != nil {
			return nil, err
		}
		n := tree.Find(files, id)
		prefix, _ = tree.FindPath(files, id)
		if folder, ok := n.(*tree.Folder); ok {
			files = folder.Children
		} else {
			files = tree.Forest{n}
			prefix = parentPath(prefix)
		}
	}

	out := &TreeOutput{
		Files: files,
		Nodes: []NodeInfo{},
		Stats: tree.Count(files),
	}
	_ = tree.Walk(files, func(path string, n tree.Node) error {
		if prefix != "" {
			path = prefix + "/" + path
		}
		out.Nodes = append(out.Nodes, describe(path, n))
		return nil
	})
	return out, nil
}

func parentPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
