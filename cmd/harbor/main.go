package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// subcommands are the names that select CLI mode. Anything else on a
// terminal is an error; anything else with piped stdin starts MCP.
var subcommands = map[string]bool{
	"tree": true, "find": true, "search": true, "cat": true,
	"touch": true, "mkdir": true, "rm": true, "mv": true,
	"write": true, "save": true, "open": true, "close": true, "tabs": true,
	"settings": true, "preview": true, "export": true, "import": true,
	"gist": true, "token": true, "history": true,
	"serve": true, "shell": true, "help": true,
}

const ephemeralFlag = "--ephemeral"

type launchMode int

const (
	launchBanner launchMode = iota
	launchHelp
	launchCLI
	launchMCP
	launchUnknown
)

// launchModeFor decides what a process started with args does. tty reports
// whether stdin is a terminal.
func launchModeFor(args []string, tty bool) launchMode {
	cmd := commandArg(args)
	switch {
	case cmd == "" && tty:
		return launchBanner
	case cmd == "--help", cmd == "-h", cmd == "--version", cmd == "-v", cmd == "help":
		return launchHelp
	case subcommands[cmd]:
		return launchCLI
	case cmd != "" && tty:
		return launchUnknown
	}
	return launchMCP
}

// commandArg returns the first argument that is not a global flag.
func commandArg(args []string) string {
	for _, arg := range args[1:] {
		if arg != ephemeralFlag {
			return arg
		}
	}
	return ""
}

// isEphemeral reports whether --ephemeral precedes the subcommand.
func isEphemeral(args []string) bool {
	for _, arg := range args[1:] {
		if arg == ephemeralFlag {
			return true
		}
		if subcommands[arg] {
			return false
		}
	}
	return false
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

const banner = `
   _                _
  | |__   __ _ _ __| |__   ___  _ __
  | '_ \ / _` + "`" + ` | '__| '_ \ / _ \| '__|
  | | | | (_| | |  | |_) | (_) | |
  |_| |_|\__,_|_|  |_.__/ \___/|_|

  Code editor workspace backend

  Usage: harbor <command> [options]
         harbor serve
         harbor shell
         harbor --help

  MCP server mode requires piped input.`

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	mode := launchModeFor(args, stdinIsTerminal())
	switch mode {
	case launchBanner:
		fmt.Println(banner)
		return nil
	case launchHelp:
		// No store is opened for help output.
		return newCLIApp(nil).Run(args)
	case launchUnknown:
		return fmt.Errorf("unknown command %q; run 'harbor --help' for usage", commandArg(args))
	}

	baseDir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := openEnv(context.Background(), baseDir, cfg, isEphemeral(args))
	if err != nil {
		return err
	}
	defer env.Close()

	if mode == launchCLI {
		return newCLIApp(env).Run(args)
	}
	return mcp.Run(mcp.Deps{
		Workspace: env.workspace,
		DB:        env.db,
		Config:    env.cfg,
		Previews:  env.previews,
		Gist:      env.gist,
	}, Version)
}

// loadConfig layers ~/.harbor/config.json (or .yaml), the nearest repo config, the
// ~/.harbor/.env file and the process environment.
func loadConfig() (string, *config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(home, ".harbor")

	if err := config.LoadDotEnv(baseDir); err != nil {
		return "", nil, err
	}
	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return "", nil, err
	}
	return baseDir, cfg, nil
}
