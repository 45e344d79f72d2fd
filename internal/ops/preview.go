package ops

import (
	"github.com/hpungsan/harbor/internal/preview"
	"github.com/hpungsan/harbor/internal/workspace"
)

// PreviewInput contains parameters for the Preview operation.
type PreviewInput struct {
	// Previous is the handle being superseded; it is released once the new
	// document is published.
	Previous    string
	IncludeBody bool
}

// PreviewOutput contains the result of the Preview operation.
type PreviewOutput struct {
	Handle   string `json:"handle,omitempty"`
	ETag     string `json:"etag,omitempty"`
	Bytes    int    `json:"bytes"`
	HTMLPath string `json:"html_path"`
	CSSPath  string `json:"css_path"`
	JSPath   string `json:"js_path"`
	Body     string `json:"body,omitempty"`
}

// Preview composes the preview document from the first HTML, CSS and JS
// files. With a registry the document is published under a new handle;
// without one it is only composed.
func Preview(ws *workspace.Workspace, registry *preview.Registry, input PreviewInput) (*PreviewOutput, error) {
	src := preview.Select(ws.Files())
	body := preview.ComposeSources(src)

	out := &PreviewOutput{
		Bytes:    len(body),
		HTMLPath: src.HTMLPath,
		CSSPath:  src.CSSPath,
		JSPath:   src.JSPath,
	}
	if registry != nil {
		doc, err := registry.Replace(input.Previous, body)
		if err != nil {
			return nil, err
		}
		out.Handle = doc.Handle
		out.ETag = doc.ETag
	}
	if input.IncludeBody {
		out.Body = body
	}
	return out, nil
}
