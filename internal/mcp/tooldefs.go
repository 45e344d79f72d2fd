package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Addressing arguments shared by the node tools.
func addressArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("id", mcp.Description("Node id. Mutually exclusive with path.")),
		mcp.WithString("path", mcp.Description("Slash-separated node path, e.g. \"src/app.js\". Mutually exclusive with id.")),
	}
}

func tool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, opts...)
}

var treeToolDef = tool("workspace_tree",
	mcp.WithDescription("Return the workspace file tree with file, folder, byte and unsaved counts."),
	mcp.WithString("root", mcp.Description("Limit the listing to the subtree at this path.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var searchToolDef = tool("workspace_search",
	mcp.WithDescription("Find nodes by glob over their paths and, optionally, by text in file content."),
	mcp.WithString("pattern", mcp.Description("Doublestar glob over node paths. Default \"**\".")),
	mcp.WithString("query", mcp.Description("Case-insensitive text to look for in file content.")),
	mcp.WithString("type", mcp.Description("Restrict to one node type."), mcp.Enum("file", "folder")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 50, max 500).")),
	mcp.WithNumber("offset", mcp.Description("Results to skip.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var readToolDef = tool("file_read", append(addressArgs(),
	mcp.WithDescription("Read a file's content and metadata."),
	mcp.WithReadOnlyHintAnnotation(true),
)...)

var createFileToolDef = tool("file_create",
	mcp.WithDescription("Create a file. New files are marked unsaved."),
	mcp.WithString("name", mcp.Required(), mcp.Description("File name, without separators.")),
	mcp.WithString("parent_id", mcp.Description("Parent folder id. Omit both parent fields for the top level.")),
	mcp.WithString("parent_path", mcp.Description("Parent folder path.")),
	mcp.WithString("content", mcp.Description("Initial content. Defaults to a one-line comment.")),
)

var createFolderToolDef = tool("folder_create",
	mcp.WithDescription("Create an empty folder."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Folder name, without separators.")),
	mcp.WithString("parent_id", mcp.Description("Parent folder id. Omit both parent fields for the top level.")),
	mcp.WithString("parent_path", mcp.Description("Parent folder path.")),
)

var deleteToolDef = tool("node_delete", append(addressArgs(),
	mcp.WithDescription("Delete a node with its whole subtree. Tabs of deleted files close."),
	mcp.WithDestructiveHintAnnotation(true),
)...)

var renameToolDef = tool("node_rename", append(addressArgs(),
	mcp.WithDescription("Rename a node in place."),
	mcp.WithString("name", mcp.Required(), mcp.Description("New name, without separators.")),
)...)

var updateToolDef = tool("file_update", append(addressArgs(),
	mcp.WithDescription("Replace a file's content. The file is marked unsaved unless save is set."),
	mcp.WithString("content", mcp.Required(), mcp.Description("New file content.")),
	mcp.WithBoolean("save", mcp.Description("Clear the unsaved flag after writing.")),
)...)

var saveToolDef = tool("file_save", append(addressArgs(),
	mcp.WithDescription("Clear the unsaved flag of a file. With no address the active tab is saved."),
)...)

var previewToolDef = tool("preview_render",
	mcp.WithDescription("Compose the sandboxed preview document from the first HTML, CSS and JS files."),
	mcp.WithBoolean("include_body", mcp.Description("Return the composed document (default true).")),
)

var exportToolDef = tool("archive_export",
	mcp.WithDescription("Write the workspace to a ZIP archive on disk."),
	mcp.WithString("path", mcp.Description("Destination .zip path. Defaults to ~/.harbor/exports/codeharbor-workspace.zip.")),
	mcp.WithString("name", mcp.Description("Base name used for the default path.")),
)

var gistPushToolDef = tool("gist_push",
	mcp.WithDescription("Save the workspace as a GitHub Gist. Folder paths are flattened into file names."),
	mcp.WithString("id", mcp.Description("Existing gist to update. Omit to create a new gist.")),
	mcp.WithString("description", mcp.Description("Gist description. Default \"Harbor Workspace\".")),
	mcp.WithBoolean("public", mcp.Description("Create a public gist.")),
	mcp.WithString("token", mcp.Description("GitHub token. Falls back to the environment, then the stored token.")),
	mcp.WithOpenWorldHintAnnotation(true),
)

var gistPullToolDef = tool("gist_pull",
	mcp.WithDescription("Replace the workspace with the files of a gist. All tabs close."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Gist id.")),
	mcp.WithString("token", mcp.Description("GitHub token. Falls back to the environment, then the stored token.")),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(true),
)
