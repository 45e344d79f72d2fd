package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/shell"
	"github.com/hpungsan/harbor/internal/web"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "harbor",
		Usage:   "Code editor workspace backend",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ephemeral", Usage: "Keep the workspace in memory for this run"},
		},
		Commands: []*cli.Command{
			treeCmd(env),
			findCmd(env),
			searchCmd(env),
			catCmd(env),
			touchCmd(env),
			mkdirCmd(env),
			rmCmd(env),
			mvCmd(env),
			writeCmd(env),
			saveCmd(env),
			openCmd(env),
			closeCmd(env),
			tabsCmd(env),
			settingsCmd(env),
			previewCmd(env),
			exportCmd(env),
			importCmd(env),
			gistCmd(env),
			tokenCmd(env),
			historyCmd(env),
			serveCmd(env),
			shellCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func addressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Node id (instead of a path argument)"},
	}
}

// address reads a node address from --id or the first argument.
func address(c *cli.Context) (id, path string) {
	return c.String("id"), c.Args().First()
}

// treeCmd creates the tree command.
func treeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Show the file tree",
		ArgsUsage: "[root]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|yaml"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Tree(env.workspace, ops.TreeInput{Root: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			switch c.String("format") {
			case "json":
				return outputJSON(output)
			case "yaml":
				return outputYAML(output)
			default:
				return outputError(errors.NewInvalidRequest("format must be json or yaml"))
			}
		},
	}
}

// findCmd creates the find command.
func findCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Describe one node",
		ArgsUsage: "[path]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, path := address(c)
			output, err := ops.Find(env.workspace, ops.FindInput{ID: id, Path: path})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Match node paths by glob and file content by text",
		ArgsUsage: "[pattern]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Text to find in file content"},
			&cli.StringFlag{Name: "type", Usage: "Filter by node type: file|folder"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(env.workspace, ops.SearchInput{
				Pattern: c.Args().First(),
				Query:   c.String("query"),
				Type:    c.String("type"),
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// catCmd creates the cat command.
func catCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Print a file's content",
		ArgsUsage: "[path]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the file with its metadata as JSON"},
		}, addressFlags()...),
		Action: func(c *cli.Context) error {
			id, path := address(c)
			output, err := ops.Cat(env.workspace, ops.CatInput{ID: id, Path: path})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			_, err = io.WriteString(os.Stdout, output.Content)
			return err
		},
	}
}

// createAction backs touch and mkdir. The argument is a path whose last
// segment is the new node's name.
func createAction(env *appEnv, kind string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return outputError(errors.NewInvalidRequest("exactly one path is required"))
		}
		parent, name := splitPath(c.Args().First())
		input := ops.CreateNodeInput{
			ParentID:   c.String("parent-id"),
			ParentPath: parent,
			Name:       name,
			Type:       kind,
		}
		if input.ParentID != "" && parent != "" {
			return outputError(errors.NewInvalidRequest("use either --parent-id or a nested path, not both"))
		}
		if kind == "file" {
			if c.IsSet("content") {
				content := c.String("content")
				input.Content = &content
			} else if stdinHasData() {
				content, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Content = &content
			}
		}
		output, err := ops.CreateNode(c.Context, env.workspace, input)
		if err != nil {
			return outputError(err)
		}
		return outputJSON(output)
	}
}

// touchCmd creates the touch command.
func touchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "touch",
		Usage:     "Create a file (content from --content or stdin)",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Initial content"},
			&cli.StringFlag{Name: "parent-id", Usage: "Parent folder id"},
		},
		Action: createAction(env, "file"),
	}
}

// mkdirCmd creates the mkdir command.
func mkdirCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "mkdir",
		Usage:     "Create a folder",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent-id", Usage: "Parent folder id"},
		},
		Action: createAction(env, "folder"),
	}
}

// rmCmd creates the rm command.
func rmCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a node and everything under it",
		ArgsUsage: "[path]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, path := address(c)
			output, err := ops.DeleteNode(c.Context, env.workspace, ops.DeleteNodeInput{ID: id, Path: path})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// mvCmd creates the mv command.
func mvCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "mv",
		Usage:     "Rename a node",
		ArgsUsage: "[path] <new-name>",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			input := ops.RenameNodeInput{ID: c.String("id")}
			switch {
			case input.ID != "" && c.NArg() == 1:
				input.Name = c.Args().Get(0)
			case input.ID == "" && c.NArg() == 2:
				input.Path = c.Args().Get(0)
				input.Name = c.Args().Get(1)
			default:
				return outputError(errors.NewInvalidRequest("usage: mv <path> <new-name> or mv --id <id> <new-name>"))
			}
			output, err := ops.RenameNode(c.Context, env.workspace, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// writeCmd creates the write command.
func writeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "Replace a file's content (reads content from stdin)",
		ArgsUsage: "[path]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Clear the unsaved flag after writing"},
		}, addressFlags()...),
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}
			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			id, path := address(c)
			output, err := ops.UpdateFile(c.Context, env.workspace, ops.UpdateFileInput{
				ID:      id,
				Path:    path,
				Content: content,
				Save:    c.Bool("save"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Mark a file saved (default: the active tab)",
		ArgsUsage: "[path]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, path := address(c)
			output, err := ops.SaveFile(c.Context, env.workspace, ops.SaveFileInput{ID: id, Path: path})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// openCmd creates the open command.
func openCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a file in a tab and activate it",
		ArgsUsage: "[path]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, path := address(c)
			output, err := ops.OpenTab(c.Context, env.workspace, ops.OpenTabInput{ID: id, Path: path})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// closeCmd creates the close command.
func closeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "close",
		Usage:     "Close a tab",
		ArgsUsage: "[path]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, path := address(c)
			output, err := ops.CloseTab(c.Context, env.workspace, ops.CloseTabInput{ID: id, Path: path})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// tabsCmd creates the tabs command.
func tabsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "tabs",
		Usage: "List open tabs",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.ListTabs(env.workspace))
		},
	}
}

// settingsCmd creates the settings command. Without flags it prints the
// current settings.
func settingsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change editor settings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "theme", Usage: "dark|light"},
			&cli.IntFlag{Name: "font-size", Usage: fmt.Sprintf("Font size (%d-%d)", ops.MinFontSize, ops.MaxFontSize)},
			&cli.IntFlag{Name: "tab-size", Usage: fmt.Sprintf("Tab size (%d-%d)", ops.MinTabSize, ops.MaxTabSize)},
			&cli.BoolFlag{Name: "word-wrap", Usage: "Wrap long lines"},
			&cli.BoolFlag{Name: "minimap", Usage: "Show the minimap"},
			&cli.BoolFlag{Name: "auto-save", Usage: "Save automatically"},
			&cli.BoolFlag{Name: "format-on-save", Usage: "Format when saving"},
		},
		Action: func(c *cli.Context) error {
			var input ops.UpdateSettingsInput
			changed := false
			if c.IsSet("theme") {
				v := c.String("theme")
				input.Theme = &v
				changed = true
			}
			for flag, dst := range map[string]**int{"font-size": &input.FontSize, "tab-size": &input.TabSize} {
				if c.IsSet(flag) {
					v := c.Int(flag)
					*dst = &v
					changed = true
				}
			}
			for flag, dst := range map[string]**bool{
				"word-wrap":      &input.WordWrap,
				"minimap":        &input.Minimap,
				"auto-save":      &input.AutoSave,
				"format-on-save": &input.FormatOnSave,
			} {
				if c.IsSet(flag) {
					v := c.Bool(flag)
					*dst = &v
					changed = true
				}
			}
			if !changed {
				return outputJSON(ops.GetSettings(env.workspace))
			}
			output, err := ops.UpdateSettings(c.Context, env.workspace, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// previewCmd creates the preview command. The composed document is printed
// as HTML, or written to --out.
func previewCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Compose the preview document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the document to this file"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result with its metadata as JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Preview(env.workspace, nil, ops.PreviewInput{IncludeBody: true})
			if err != nil {
				return outputError(err)
			}
			if out := c.String("out"); out != "" {
				if err := os.WriteFile(out, []byte(output.Body), 0o600); err != nil {
					return outputError(errors.NewInternal(err))
				}
				output.Body = ""
				return outputJSON(output)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			_, err = io.WriteString(os.Stdout, output.Body)
			return err
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the workspace as a ZIP archive",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination .zip (default: ~/.harbor/exports/<name>.zip)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Base name for the default path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportArchive(c.Context, env.workspace, env.db, env.cfg, ops.ExportArchiveInput{
				Path: c.String("path"),
				Name: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load a ZIP archive into the workspace",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeReplace), Usage: "Import mode: replace|merge"},
			&cli.BoolFlag{Name: "dry-run", Usage: "List the archive entries without importing"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("archive path is required"))
			}
			output, err := ops.ImportArchive(c.Context, env.workspace, env.cfg, ops.ImportArchiveInput{
				Path:   c.Args().First(),
				Mode:   ops.ImportMode(c.String("mode")),
				DryRun: c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{Name: "token", Usage: "GitHub token (default: $HARBOR_GIST_TOKEN, then the stored token)"}
}

// gistCmd creates the gist command with its subcommands.
func gistCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "gist",
		Usage: "Save the workspace to, or load it from, a GitHub Gist",
		Subcommands: []*cli.Command{
			{
				Name:  "push",
				Usage: "Upload every file to a new or existing gist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Update this gist instead of creating one"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Gist description"},
					&cli.BoolFlag{Name: "public", Usage: "Create a public gist"},
					&cli.BoolFlag{Name: "copy", Usage: "Copy the gist URL to the clipboard"},
					tokenFlag(),
				},
				Action: func(c *cli.Context) error {
					output, err := ops.GistPush(c.Context, env.workspace, env.gist, ops.GistPushInput{
						ID:          c.String("id"),
						Description: c.String("description"),
						Public:      c.Bool("public"),
						Token:       c.String("token"),
					})
					if err != nil {
						return outputError(err)
					}
					if c.Bool("copy") {
						if err := copyToClipboard(output.URL); err != nil {
							fmt.Fprintf(os.Stderr, "warning: could not copy to clipboard: %v\n", err)
						}
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "pull",
				Usage:     "Replace the workspace with the files of a gist",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{tokenFlag()},
				Action: func(c *cli.Context) error {
					output, err := ops.GistPull(c.Context, env.workspace, env.gist, ops.GistPullInput{
						ID:    c.Args().First(),
						Token: c.String("token"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "diff",
				Usage:     "Compare the workspace with a gist",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{tokenFlag()},
				Action: func(c *cli.Context) error {
					output, err := ops.GistDiff(c.Context, env.workspace, env.gist, ops.GistDiffInput{
						ID:    c.Args().First(),
						Token: c.String("token"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List your gists",
				Flags: []cli.Flag{tokenFlag()},
				Action: func(c *cli.Context) error {
					output, err := ops.GistList(c.Context, env.gist, ops.GistListInput{Token: c.String("token")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// tokenCmd creates the token command.
func tokenCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Store the GitHub token (argument or stdin)",
		ArgsUsage: "[token]",
		Action: func(c *cli.Context) error {
			token := c.Args().First()
			if token == "" && stdinHasData() {
				var err error
				if token, err = readStdin(); err != nil {
					return outputError(errors.NewInternal(err))
				}
				token = strings.TrimSpace(token)
			}
			output, err := ops.SetToken(c.Context, env.store, ops.SetTokenInput{Token: token})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent archive exports and gist pushes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Filter: archive|gist"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, env.db, ops.HistoryInput{
				Kind:  c.String("kind"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := env.cfg.WebBind, env.cfg.WebPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}
			hub := web.NewHub()
			srv := web.NewServer(web.Deps{
				Workspace: env.workspace,
				DB:        env.db,
				Config:    env.cfg,
				Previews:  env.previews,
				Gist:      env.gist,
			}, hub, Version, bind, port)
			return web.Run(srv, hub)
		},
	}
}

// shellCmd creates the shell command.
func shellCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell",
		Action: func(c *cli.Context) error {
			history := ""
			if env.db != nil {
				history = filepath.Join(env.baseDir, "shell_history")
			}
			rl, err := shell.NewReadline(history)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer rl.Close()

			sh := shell.New(shell.Deps{
				Workspace: env.workspace,
				DB:        env.db,
				Config:    env.cfg,
				Previews:  env.previews,
				Gist:      env.gist,
			}, rl, os.Stdout)
			return sh.Run(c.Context)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML marshals result to stdout as YAML.
func outputYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// outputError formats error for CLI.
func outputError(err error) error {
	var hErr *errors.HarborError
	if stderrors.As(err, &hErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", hErr.Code, hErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin. Content is kept byte for byte.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitPath splits "a/b/c" into ("a/b", "c").
func splitPath(p string) (parent, name string) {
	p = strings.Trim(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i], p[i+1:]
	}
	return "", p
}
