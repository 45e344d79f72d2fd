package gist

import (
	"strings"

	"github.com/hpungsan/harbor/internal/tree"
)

// Flatten lists every file with content in pre-order, named by its full path.
// Folders contribute only their path prefix, so folders without files vanish.
// Files sharing a path collapse to one entry holding the later content.
func Flatten(f tree.Forest) Files {
	var out Files
	_ = tree.Walk(f, func(path string, n tree.Node) error {
		if file, ok := n.(*tree.File); ok && file.Content != nil {
			out = append(out, File{Filename: path, Content: *file.Content})
		}
		return nil
	})
	return out.Collapse()
}

// Reconstruct rebuilds a forest from flat files. Each "/"-separated prefix
// becomes a folder, shared by every file under the same prefix. Nodes get
// fresh ids.
func Reconstruct(files Files) tree.Forest {
	root := &tree.Folder{Children: tree.Forest{}}
	folders := make(map[string]*tree.Folder)

	for _, gf := range files {
		parts := strings.Split(gf.Filename, "/")
		name := parts[len(parts)-1]

		parent := root
		prefix := ""
		for _, part := range parts[:len(parts)-1] {
			if prefix == "" {
				prefix = part
			} else {
				prefix += "/" + part
			}
			folder, ok := folders[prefix]
			if !ok {
				folder = tree.NewFolder(part)
				folders[prefix] = folder
				parent.Children = append(parent.Children, folder)
			}
			parent = folder
		}
		parent.Children = append(parent.Children, tree.NewFile(name, gf.Content))
	}
	return root.Children
}
