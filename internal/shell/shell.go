// Package shell is an interactive REPL over the workspace operations.
package shell

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/preview"
	"github.com/hpungsan/harbor/internal/workspace"
)

// ErrExit is returned by Execute when the user asks to leave.
var ErrExit = stderrors.New("exit requested")

// Deps is everything the shell commands operate on.
type Deps struct {
	Workspace *workspace.Workspace
	DB        *sql.DB
	Config    *config.Config
	Previews  *preview.Registry
	Gist      ops.GistEnv
}

// Shell reads commands from a readline instance and prints JSON results.
type Shell struct {
	deps   Deps
	rl     *readline.Instance
	out    io.Writer
	Prompt string

	lastPreview string
}

// New creates a shell writing to out. rl may be nil when commands are fed
// through Execute directly.
func New(deps Deps, rl *readline.Instance, out io.Writer) *Shell {
	s := &Shell{deps: deps, rl: rl, out: out}
	s.UpdatePrompt()
	return s
}

// NewReadline builds the readline instance used by Run.
func NewReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          "harbor> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandHelp))
	for _, name := range commandNames() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// UpdatePrompt shows the active tab, marked when it has unsaved changes.
func (s *Shell) UpdatePrompt() {
	s.Prompt = "harbor> "
	if tab, ok := s.deps.Workspace.ActiveTab(); ok {
		mark := ""
		if tab.Unsaved {
			mark = "*"
		}
		s.Prompt = fmt.Sprintf("harbor [%s%s]> ", tab.Name, mark)
	}
	if s.rl != nil {
		s.rl.SetPrompt(s.Prompt)
	}
}

// Run reads and executes commands until exit or EOF. Command errors are
// printed and the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	if s.rl == nil {
		return fmt.Errorf("shell: no readline instance")
	}
	defer s.Close()
	for {
		line, err := s.rl.Readline()
		if stderrors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(s.out, "Use 'exit' or 'quit' to leave the shell.")
			continue
		}
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args, err := ParseArgs(line)
		if err != nil {
			fmt.Fprintln(s.out, "Error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := s.Execute(ctx, args); err != nil {
			if stderrors.Is(err, ErrExit) {
				return nil
			}
			fmt.Fprintln(s.out, "Error:", err)
		}
		s.UpdatePrompt()
	}
}

// Close releases the shell's current preview document. Run calls it on exit.
func (s *Shell) Close() {
	if s.lastPreview == "" || s.deps.Previews == nil {
		return
	}
	s.deps.Previews.Release(s.lastPreview)
	s.lastPreview = ""
}

// ParseArgs splits a command line into arguments. Single and double quotes
// group words; inside double quotes \n, \t, \" and \\ are unescaped.
func ParseArgs(input string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
		escaped bool
	)
	for _, ch := range input {
		switch {
		case escaped:
			switch ch {
			case 'n':
				current.WriteRune('\n')
			case 't':
				current.WriteRune('\t')
			default:
				current.WriteRune(ch)
			}
			escaped = false
		case quote == '"' && ch == '\\':
			escaped = true
		case quote != 0 && ch == quote:
			quote = 0
		case quote != 0:
			current.WriteRune(ch)
		case ch == '"' || ch == '\'':
			quote = ch
			inArg = true
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(ch)
			inArg = true
		}
	}
	if quote != 0 || escaped {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// Execute runs one parsed command.
func (s *Shell) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}
	cmd, rest := args[0], args[1:]
	ws := s.deps.Workspace

	switch cmd {
	case "tree":
		root, err := optional(rest, "tree [root]")
		if err != nil {
			return err
		}
		out, err := ops.Tree(ws, ops.TreeInput{Root: root})
		if err != nil {
			return err
		}
		return s.print(out.Nodes)

	case "find":
		path, err := exactlyOne(rest, "find <path>")
		if err != nil {
			return err
		}
		return s.result(ops.Find(ws, ops.FindInput{Path: path}))

	case "search":
		if len(rest) == 0 || len(rest) > 2 {
			return usage("search <pattern> [text]")
		}
		input := ops.SearchInput{Pattern: rest[0]}
		if len(rest) == 2 {
			input.Query = rest[1]
		}
		return s.result(ops.Search(ws, input))

	case "cat":
		path, err := exactlyOne(rest, "cat <path>")
		if err != nil {
			return err
		}
		out, err := ops.Cat(ws, ops.CatInput{Path: path})
		if err != nil {
			return err
		}
		_, err = io.WriteString(s.out, out.Content)
		if err == nil && !strings.HasSuffix(out.Content, "\n") {
			_, err = io.WriteString(s.out, "\n")
		}
		return err

	case "touch", "mkdir":
		if len(rest) == 0 || (cmd == "mkdir" && len(rest) > 1) || len(rest) > 2 {
			return usage(commandHelp[cmd])
		}
		parent, name := splitPath(rest[0])
		input := ops.CreateNodeInput{ParentPath: parent, Name: name, Type: "file"}
		if cmd == "mkdir" {
			input.Type = "folder"
		}
		if len(rest) == 2 {
			input.Content = &rest[1]
		}
		return s.result(ops.CreateNode(ctx, ws, input))

	case "rm":
		path, err := exactlyOne(rest, "rm <path>")
		if err != nil {
			return err
		}
		return s.result(ops.DeleteNode(ctx, ws, ops.DeleteNodeInput{Path: path}))

	case "mv":
		if len(rest) != 2 {
			return usage("mv <path> <new-name>")
		}
		return s.result(ops.RenameNode(ctx, ws, ops.RenameNodeInput{Path: rest[0], Name: rest[1]}))

	case "write":
		if len(rest) != 2 {
			return usage("write <path> <content>")
		}
		return s.result(ops.UpdateFile(ctx, ws, ops.UpdateFileInput{Path: rest[0], Content: rest[1]}))

	case "save":
		path, err := optional(rest, "save [path]")
		if err != nil {
			return err
		}
		return s.result(ops.SaveFile(ctx, ws, ops.SaveFileInput{Path: path}))

	case "open":
		path, err := exactlyOne(rest, "open <path>")
		if err != nil {
			return err
		}
		return s.result(ops.OpenTab(ctx, ws, ops.OpenTabInput{Path: path}))

	case "close":
		path, err := exactlyOne(rest, "close <path>")
		if err != nil {
			return err
		}
		return s.result(ops.CloseTab(ctx, ws, ops.CloseTabInput{Path: path}))

	case "tabs":
		return s.print(ops.ListTabs(ws))

	case "settings":
		return s.settings(ctx, rest)

	case "preview":
		if len(rest) > 0 {
			return usage("preview")
		}
		out, err := ops.Preview(ws, s.deps.Previews, ops.PreviewInput{Previous: s.lastPreview})
		if err != nil {
			return err
		}
		s.lastPreview = out.Handle
		return s.print(out)

	case "export":
		path, err := optional(rest, "export [path]")
		if err != nil {
			return err
		}
		return s.result(ops.ExportArchive(ctx, ws, s.deps.DB, s.deps.Config, ops.ExportArchiveInput{Path: path}))

	case "import":
		if len(rest) == 0 || len(rest) > 2 {
			return usage("import <path> [replace|merge]")
		}
		input := ops.ImportArchiveInput{Path: rest[0]}
		if len(rest) == 2 {
			input.Mode = ops.ImportMode(rest[1])
		}
		return s.result(ops.ImportArchive(ctx, ws, s.deps.Config, input))

	case "history":
		kind, err := optional(rest, "history [archive|gist]")
		if err != nil {
			return err
		}
		return s.result(ops.History(ctx, s.deps.DB, ops.HistoryInput{Kind: kind}))

	case "help":
		topic, err := optional(rest, "help [command]")
		if err != nil {
			return err
		}
		s.printHelp(topic)
		return nil

	case "exit", "quit":
		return ErrExit

	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// settings prints the settings, or applies "settings <key> <value>".
func (s *Shell) settings(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		return s.print(ops.GetSettings(s.deps.Workspace))
	case 2:
	default:
		return usage("settings [<key> <value>]")
	}

	key, value := args[0], args[1]
	var input ops.UpdateSettingsInput
	switch key {
	case "theme":
		input.Theme = &value
	case "fontSize", "tabSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.NewInvalidRequest(key + " must be an integer")
		}
		if key == "fontSize" {
			input.FontSize = &n
		} else {
			input.TabSize = &n
		}
	case "wordWrap", "minimap", "autoSave", "formatOnSave":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.NewInvalidRequest(key + " must be true or false")
		}
		switch key {
		case "wordWrap":
			input.WordWrap = &b
		case "minimap":
			input.Minimap = &b
		case "autoSave":
			input.AutoSave = &b
		default:
			input.FormatOnSave = &b
		}
	default:
		return errors.NewInvalidRequest("unknown setting: " + key)
	}
	return s.result(ops.UpdateSettings(ctx, s.deps.Workspace, input))
}

func (s *Shell) result(v any, err error) error {
	if err != nil {
		return err
	}
	return s.print(v)
}

func (s *Shell) print(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *Shell) printHelp(command string) {
	if command == "" {
		fmt.Fprintln(s.out, "Available commands:")
		for _, name := range commandNames() {
			fmt.Fprintf(s.out, "  %s\n", commandHelp[name])
		}
		return
	}
	if help, ok := commandHelp[command]; ok {
		fmt.Fprintln(s.out, help)
		return
	}
	fmt.Fprintf(s.out, "Unknown command: %s\n", command)
}

// splitPath splits "a/b/c" into ("a/b", "c").
func splitPath(p string) (parent, name string) {
	p = strings.Trim(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i], p[i+1:]
	}
	return "", p
}

func exactlyOne(args []string, syntax string) (string, error) {
	if len(args) != 1 {
		return "", usage(syntax)
	}
	return args[0], nil
}

func optional(args []string, syntax string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", usage(syntax)
	}
}

func usage(syntax string) error {
	return errors.NewInvalidRequest("usage: " + syntax)
}

func commandNames() []string {
	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var commandHelp = map[string]string{
	"tree":     "tree [root]",
	"find":     "find <path>",
	"search":   "search <pattern> [text]",
	"cat":      "cat <path>",
	"touch":    `touch <path> ["content"]`,
	"mkdir":    "mkdir <path>",
	"rm":       "rm <path>",
	"mv":       "mv <path> <new-name>",
	"write":    `write <path> "content"`,
	"save":     "save [path]",
	"open":     "open <path>",
	"close":    "close <path>",
	"tabs":     "tabs",
	"settings": "settings [<key> <value>]",
	"preview":  "preview",
	"export":   "export [path]",
	"import":   "import <path> [replace|merge]",
	"history":  "history [archive|gist]",
	"help":     "help [command]",
	"exit":     "exit",
	"quit":     "quit",
}
