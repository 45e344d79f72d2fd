package tree

import (
	"encoding/json"
	"fmt"
)

// wireNode is the JSON shape of a node as the browser editor stores it.
type wireNode struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      Kind        `json:"type"`
	Content   *string     `json:"content,omitempty"`
	Children  *[]wireNode `json:"children,omitempty"`
	IsUnsaved bool        `json:"isUnsaved"`
}

// MarshalJSON encodes the forest as an array of wire nodes.
func (f Forest) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(f))
}

// UnmarshalJSON decodes an array of wire nodes. An explicit type decides the
// variant, and a file's stray children are dropped. Without a recognized
// type, a node that carries children is a folder and anything else a file.
func (f *Forest) UnmarshalJSON(data []byte) error {
	var nodes []wireNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return fmt.Errorf("decode forest: %w", err)
	}
	*f = fromWire(nodes)
	return nil
}

func toWire(f Forest) []wireNode {
	out := make([]wireNode, 0, len(f))
	for _, n := range f {
		switch n := n.(type) {
		case *File:
			out = append(out, wireNode{
				ID:        n.ID,
				Name:      n.Name,
				Type:      KindFile,
				Content:   n.Content,
				IsUnsaved: n.Unsaved,
			})
		case *Folder:
			children := toWire(n.Children)
			out = append(out, wireNode{
				ID:        n.ID,
				Name:      n.Name,
				Type:      KindFolder,
				Children:  &children,
				IsUnsaved: n.Unsaved,
			})
		}
	}
	return out
}

func fromWire(nodes []wireNode) Forest {
	out := make(Forest, 0, len(nodes))
	for _, w := range nodes {
		if isFolder(w) {
			var children Forest
			if w.Children != nil {
				children = fromWire(*w.Children)
			} else {
				children = Forest{}
			}
			out = append(out, &Folder{
				ID:       w.ID,
				Name:     w.Name,
				Children: children,
				Unsaved:  w.IsUnsaved,
			})
			continue
		}
		out = append(out, &File{
			ID:      w.ID,
			Name:    w.Name,
			Content: w.Content,
			Unsaved: w.IsUnsaved,
		})
	}
	return out
}

func isFolder(w wireNode) bool {
	switch w.Type {
	case KindFolder:
		return true
	case KindFile:
		return false
	}
	return w.Children != nil
}
