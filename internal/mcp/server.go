// Package mcp exposes the workspace operations as MCP tools over stdio.
package mcp

import (
	"context"
	"database/sql"
	"log"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/preview"
	"github.com/hpungsan/harbor/internal/workspace"
)

// ToolTypes lists the groups tools belong to. A group can be switched off as
// a whole with disabled_types.
var ToolTypes = []string{"workspace", "file", "folder", "node", "preview", "archive", "gist"}

type toolEntry struct {
	group  string
	def    mcp.Tool
	handle func(*Handlers, context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// tools is keyed by tool name. The group is the name's prefix.
var tools = map[string]toolEntry{
	"workspace_tree":   {"workspace", treeToolDef, (*Handlers).HandleTree},
	"workspace_search": {"workspace", searchToolDef, (*Handlers).HandleSearch},
	"file_read":        {"file", readToolDef, (*Handlers).HandleRead},
	"file_create":      {"file", createFileToolDef, (*Handlers).HandleCreateFile},
	"file_update":      {"file", updateToolDef, (*Handlers).HandleUpdate},
	"file_save":        {"file", saveToolDef, (*Handlers).HandleSave},
	"folder_create":    {"folder", createFolderToolDef, (*Handlers).HandleCreateFolder},
	"node_delete":      {"node", deleteToolDef, (*Handlers).HandleDelete},
	"node_rename":      {"node", renameToolDef, (*Handlers).HandleRename},
	"preview_render":   {"preview", previewToolDef, (*Handlers).HandlePreview},
	"archive_export":   {"archive", exportToolDef, (*Handlers).HandleExport},
	"gist_push":        {"gist", gistPushToolDef, (*Handlers).HandleGistPush},
	"gist_pull":        {"gist", gistPullToolDef, (*Handlers).HandleGistPull},
}

// ToolNames returns every tool name, sorted.
func ToolNames() []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolType returns the group of a registered tool, or "" for unknown names.
func ToolType(name string) string {
	return tools[name].group
}

// UnknownTools returns the entries of names that are not tools.
func UnknownTools(names []string) []string {
	var unknown []string
	for _, name := range names {
		if _, ok := tools[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// UnknownTypes returns the entries of names that are not tool groups.
func UnknownTypes(names []string) []string {
	var unknown []string
	for _, name := range names {
		if !contains(ToolTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ToolsOfTypes returns the sorted names of every tool in one of the groups.
func ToolsOfTypes(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}
	var names []string
	for _, name := range ToolNames() {
		if contains(groups, tools[name].group) {
			names = append(names, name)
		}
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Deps is everything the tool handlers operate on.
type Deps struct {
	Workspace *workspace.Workspace
	DB        *sql.DB // optional; export history
	Config    *config.Config
	Previews  *preview.Registry // optional; without it previews are only composed
	Gist      ops.GistEnv
}

// NewServer builds the MCP server. Tools named in disabled_tools, or in a
// group named in disabled_types, are left out. Unknown names in either list
// are logged and ignored.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer("harbor", version, server.WithToolCapabilities(true))
	h := NewHandlers(deps)

	skip := map[string]bool{}
	if cfg := deps.Config; cfg != nil {
		if unknown := UnknownTools(cfg.DisabledTools); len(unknown) > 0 {
			log.Printf("mcp: ignoring unknown disabled_tools: %v", unknown)
		}
		if unknown := UnknownTypes(cfg.DisabledTypes); len(unknown) > 0 {
			log.Printf("mcp: ignoring unknown disabled_types: %v", unknown)
		}
		for _, name := range append(ToolsOfTypes(cfg.DisabledTypes), cfg.DisabledTools...) {
			skip[name] = true
		}
	}

	for _, name := range ToolNames() {
		if skip[name] {
			continue
		}
		t := tools[name]
		s.AddTool(t.def, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return t.handle(h, ctx, req)
		})
	}
	return s
}

// Run serves the tools on stdin and stdout until the client disconnects.
func Run(deps Deps, version string) error {
	return server.ServeStdio(NewServer(deps, version))
}
