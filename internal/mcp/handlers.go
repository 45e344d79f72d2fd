package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps Deps

	// lastPreview is the handle published by the previous preview_render
	// call; it is released when the next one is published.
	mu          sync.Mutex
	lastPreview string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for each tool

// TreeRequest represents the arguments for workspace_tree.
type TreeRequest struct {
	Root string `json:"root,omitempty"`
}

// SearchRequest represents the arguments for workspace_search.
type SearchRequest struct {
	Pattern string `json:"pattern,omitempty"`
	Query   string `json:"query,omitempty"`
	Type    string `json:"type,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// AddressRequest represents the arguments of tools that address one node.
type AddressRequest struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

// CreateRequest represents the arguments for file_create and folder_create.
type CreateRequest struct {
	Name       string  `json:"name"`
	ParentID   string  `json:"parent_id,omitempty"`
	ParentPath string  `json:"parent_path,omitempty"`
	Content    *string `json:"content,omitempty"`
}

// RenameRequest represents the arguments for node_rename.
type RenameRequest struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
	Name string `json:"name"`
}

// UpdateRequest represents the arguments for file_update.
type UpdateRequest struct {
	ID      string  `json:"id,omitempty"`
	Path    string  `json:"path,omitempty"`
	Content *string `json:"content"`
	Save    bool    `json:"save,omitempty"`
}

// PreviewRequest represents the arguments for preview_render.
type PreviewRequest struct {
	IncludeBody *bool `json:"include_body,omitempty"`
}

// ExportRequest represents the arguments for archive_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
}

// GistPushRequest represents the arguments for gist_push.
type GistPushRequest struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public,omitempty"`
	Token       string `json:"token,omitempty"`
}

// GistPullRequest represents the arguments for gist_pull.
type GistPullRequest struct {
	ID    string `json:"id"`
	Token string `json:"token,omitempty"`
}

// Handler implementations

// HandleTree handles the workspace_tree tool call.
func (h *Handlers) HandleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TreeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Tree(h.deps.Workspace, ops.TreeInput{Root: input.Root})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the workspace_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Search(h.deps.Workspace, ops.SearchInput{
		Pattern: input.Pattern,
		Query:   input.Query,
		Type:    input.Type,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRead handles the file_read tool call.
func (h *Handlers) HandleRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Cat(h.deps.Workspace, ops.CatInput{ID: input.ID, Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCreateFile handles the file_create tool call.
func (h *Handlers) HandleCreateFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.create(ctx, req, "file")
}

// HandleCreateFolder handles the folder_create tool call.
func (h *Handlers) HandleCreateFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.create(ctx, req, "folder")
}

func (h *Handlers) create(ctx context.Context, req mcp.CallToolRequest, kind string) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if kind == "folder" && input.Content != nil {
		return errorResult(errors.NewInvalidRequest("folders have no content")), nil
	}
	result, err := ops.CreateNode(ctx, h.deps.Workspace, ops.CreateNodeInput{
		ParentID:   input.ParentID,
		ParentPath: input.ParentPath,
		Name:       input.Name,
		Type:       kind,
		Content:    input.Content,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the node_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.DeleteNode(ctx, h.deps.Workspace, ops.DeleteNodeInput{ID: input.ID, Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRename handles the node_rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.RenameNode(ctx, h.deps.Workspace, ops.RenameNodeInput{
		ID:   input.ID,
		Path: input.Path,
		Name: input.Name,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the file_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Content == nil {
		return errorResult(errors.NewInvalidRequest("content is required")), nil
	}
	result, err := ops.UpdateFile(ctx, h.deps.Workspace, ops.UpdateFileInput{
		ID:      input.ID,
		Path:    input.Path,
		Content: *input.Content,
		Save:    input.Save,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSave handles the file_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.SaveFile(ctx, h.deps.Workspace, ops.SaveFileInput{ID: input.ID, Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePreview handles the preview_render tool call.
func (h *Handlers) HandlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PreviewRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	includeBody := true
	if input.IncludeBody != nil {
		includeBody = *input.IncludeBody
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	result, err := ops.Preview(h.deps.Workspace, h.deps.Previews, ops.PreviewInput{
		Previous:    h.lastPreview,
		IncludeBody: includeBody,
	})
	if err != nil {
		return errorResult(err), nil
	}
	h.lastPreview = result.Handle
	return successResult(result)
}

// HandleExport handles the archive_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.ExportArchive(ctx, h.deps.Workspace, h.deps.DB, h.deps.Config, ops.ExportArchiveInput{
		Path: input.Path,
		Name: input.Name,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGistPush handles the gist_push tool call.
func (h *Handlers) HandleGistPush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GistPushRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.GistPush(ctx, h.deps.Workspace, h.deps.Gist, ops.GistPushInput{
		ID:          input.ID,
		Description: input.Description,
		Public:      input.Public,
		Token:       input.Token,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGistPull handles the gist_pull tool call.
func (h *Handlers) HandleGistPull(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GistPullRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.GistPull(ctx, h.deps.Workspace, h.deps.Gist, ops.GistPullInput{
		ID:    input.ID,
		Token: input.Token,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL errors carry no details, which may hold paths or SQL text.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var hErr *errors.HarborError
	if stderrors.As(err, &hErr) {
		msg := hErr.Message
		if err != error(hErr) {
			// Keep the wrapping context, e.g. "export: NOT_FOUND: ...".
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    hErr.Code,
			"message": msg,
			"status":  hErr.Status,
		}
		if hErr.Code != errors.ErrInternal && hErr.Details != nil {
			errorObj["details"] = hErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
