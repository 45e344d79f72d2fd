package ops

import (
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// FindInput contains parameters for the Find operation.
type FindInput struct {
	ID   string
	Path string
}

// Find returns the summary of one node.
func Find(ws *workspace.Workspace, input FindInput) (*NodeInfo, error) {
	files := ws.Files()
	id, err := resolve(files, input.ID, input.Path)
	if err != nil {
		return nil, err
	}
	info, ok := describeID(files, id)
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return &info, nil
}

// CatInput contains parameters for the Cat operation.
type CatInput struct {
	ID   string
	Path string
}

// CatOutput contains the result of the Cat operation.
type CatOutput struct {
	NodeInfo
	Content string `json:"content" yaml:"content"`
}

// Cat returns a file's content. Folders are rejected.
func Cat(ws *workspace.Workspace, input CatInput) (*CatOutput, error) {
	files := ws.Files()
	id, err := resolve(files, input.ID, input.Path)
	if err != nil {
		return nil, err
	}
	n := tree.Find(files, id)
	if n == nil {
		return nil, errors.NewNotFound(id)
	}
	file, ok := n.(*tree.File)
	if !ok {
		return nil, errors.NewInvalidRequest("not a file: " + n.NodeName())
	}
	info, _ := describeID(files, id)
	return &CatOutput{
		NodeInfo: info,
		Content:  file.Text(),
	}, nil
}
