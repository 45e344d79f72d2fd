package tree

import "strings"

// Find returns the node with the given id, searching depth-first in
// pre-order. It returns nil if no node matches.
func Find(f Forest, id string) Node {
	for _, n := range f {
		if n.NodeID() == id {
			return n
		}
		if folder, ok := n.(*Folder); ok {
			if found := Find(folder.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindFile is Find restricted to files.
func FindFile(f Forest, id string) (*File, bool) {
	file, ok := Find(f, id).(*File)
	return file, ok
}

// FindPath returns the "/"-joined names from the root down to and including
// the node with the given id.
func FindPath(f Forest, id string) (string, bool) {
	names, ok := findChain(f, id, nil)
	if !ok {
		return "", false
	}
	return strings.Join(names, "/"), true
}

func findChain(f Forest, id string, prefix []string) ([]string, bool) {
	for _, n := range f {
		chain := append(prefix[:len(prefix):len(prefix)], n.NodeName())
		if n.NodeID() == id {
			return chain, true
		}
		if folder, ok := n.(*Folder); ok {
			if found, ok := findChain(folder.Children, id, chain); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Insert appends n to the children of the folder with id parentID, or to the
// root level when parentID is Root. A missing parent or a parent that is a
// file leaves the forest unchanged.
func Insert(f Forest, parentID string, n Node) (Forest, bool) {
	if parentID == Root {
		out := make(Forest, len(f), len(f)+1)
		copy(out, f)
		return append(out, n), true
	}
	return replace(f, parentID, func(target Node) (Node, bool) {
		folder, ok := target.(*Folder)
		if !ok {
			return nil, false
		}
		cp := *folder
		cp.Children = make(Forest, len(folder.Children), len(folder.Children)+1)
		copy(cp.Children, folder.Children)
		cp.Children = append(cp.Children, n)
		return &cp, true
	})
}

// Remove deletes the node with the given id, together with its subtree.
func Remove(f Forest, id string) (Forest, bool) {
	for i, n := range f {
		if n.NodeID() == id {
			out := make(Forest, 0, len(f)-1)
			out = append(out, f[:i]...)
			return append(out, f[i+1:]...), true
		}
		if folder, ok := n.(*Folder); ok {
			if children, ok := Remove(folder.Children, id); ok {
				cp := *folder
				cp.Children = children
				return with(f, i, &cp), true
			}
		}
	}
	return f, false
}

// UpdateContent sets the content of the file with the given id and marks it
// unsaved. Folders are left alone.
func UpdateContent(f Forest, id, content string) (Forest, bool) {
	return replace(f, id, func(target Node) (Node, bool) {
		file, ok := target.(*File)
		if !ok {
			return nil, false
		}
		cp := *file
		cp.Content = &content
		cp.Unsaved = true
		return &cp, true
	})
}

// Rename sets the name of the node with the given id. Paths recorded
// elsewhere (open tabs) are not touched.
func Rename(f Forest, id, name string) (Forest, bool) {
	return replace(f, id, func(target Node) (Node, bool) {
		switch n := target.(type) {
		case *File:
			cp := *n
			cp.Name = name
			return &cp, true
		case *Folder:
			cp := *n
			cp.Name = name
			return &cp, true
		}
		return nil, false
	})
}

// ClearUnsaved resets the unsaved flag of the node with the given id.
func ClearUnsaved(f Forest, id string) (Forest, bool) {
	return replace(f, id, func(target Node) (Node, bool) {
		switch n := target.(type) {
		case *File:
			cp := *n
			cp.Unsaved = false
			return &cp, true
		case *Folder:
			cp := *n
			cp.Unsaved = false
			return &cp, true
		}
		return nil, false
	})
}

// replace finds the node with the given id and substitutes fn's result,
// copying every folder on the path to it. When fn declines, or the id is
// absent, f itself is returned.
func replace(f Forest, id string, fn func(Node) (Node, bool)) (Forest, bool) {
	for i, n := range f {
		if n.NodeID() == id {
			repl, ok := fn(n)
			if !ok {
				return f, false
			}
			return with(f, i, repl), true
		}
		if folder, ok := n.(*Folder); ok {
			if children, ok := replace(folder.Children, id, fn); ok {
				cp := *folder
				cp.Children = children
				return with(f, i, &cp), true
			}
		}
	}
	return f, false
}

// with returns a copy of f with index i set to n.
func with(f Forest, i int, n Node) Forest {
	out := make(Forest, len(f))
	copy(out, f)
	out[i] = n
	return out
}
