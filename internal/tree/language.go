package tree

import "strings"

var languages = map[string]string{
	"js":       "javascript",
	"jsx":      "javascript",
	"ts":       "typescript",
	"tsx":      "typescript",
	"html":     "html",
	"htm":      "html",
	"css":      "css",
	"scss":     "scss",
	"sass":     "sass",
	"json":     "json",
	"py":       "python",
	"go":       "go",
	"rs":       "rust",
	"c":        "c",
	"cpp":      "cpp",
	"cc":       "cpp",
	"cxx":      "cpp",
	"java":     "java",
	"md":       "markdown",
	"markdown": "markdown",
	"sh":       "shell",
	"bash":     "shell",
	"zsh":      "shell",
	"yml":      "yaml",
	"yaml":     "yaml",
	"xml":      "xml",
	"php":      "php",
	"rb":       "ruby",
	"swift":    "swift",
	"kt":       "kotlin",
	"dart":     "dart",
}

// Language returns the editor language id for a filename, or "plaintext".
func Language(filename string) string {
	if lang, ok := languages[Ext(filename)]; ok {
		return lang
	}
	return "plaintext"
}

// Ext returns the lowercased text after the last dot in name. A name with
// no dot is its own extension, so a file called "js" counts as JavaScript.
func Ext(name string) string {
	return strings.ToLower(name[strings.LastIndexByte(name, '.')+1:])
}
