package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/postclip/internal/config"
	"github.com/hpungsan/postclip/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"capture": true, "list": true, "copy": true, "export": true,
	"clear": true, "import": true, "key": true, "session": true,
	"mcp": true, "help": true,
}

// globalFlags are accepted before the subcommand.
var globalFlags = map[string]bool{"--verbose": true}

// firstArg returns the first argument that is not a global flag.
func firstArg(args []string) string {
	for _, a := range args[1:] {
		if !globalFlags[a] {
			return a
		}
	}
	return ""
}

// isVerbose reports whether --verbose appears before the subcommand.
func isVerbose(args []string) bool {
	for _, a := range args[1:] {
		if !globalFlags[a] {
			return false
		}
		if a == "--verbose" {
			return true
		}
	}
	return false
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	arg := firstArg(args)
	if arg == "" {
		return false
	}
	return cliCommands[arg] || isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	arg := firstArg(args)
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                   _        _ _
   _ __   ___  ___| |_  ___| (_)_ __
  | '_ \ / _ \/ __| __|/ __| | | '_ \
  | |_) | (_) \__ \ |_| (__| | | |_) |
  | .__/ \___/|___/\__|\___|_|_| .__/
  |_|                          |_|

  Reddit post capture for support reviews

  Usage: postclip <command> [options]
         postclip --help

  MCP server mode requires piped input.`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if firstArg(os.Args) == "" && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening storage
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if arg := firstArg(os.Args); arg != "" && !cliCommands[arg] && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", arg)
		fmt.Fprintf(os.Stderr, "Run 'postclip --help' for usage.\n")
		os.Exit(1)
	}

	logger, err := newLogger(isVerbose(os.Args))
	if err != nil {
		fail("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".postclip")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fail("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("invalid config: %v", err)
	}

	rt, err := openRuntime(context.Background(), baseDir, cfg, logger)
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	// CLI mode: known subcommand
	if isCLIMode(os.Args) {
		app := newCLIApp(rt)
		if err := app.Run(os.Args); err != nil {
			rt.Close()
			fail("%v", err)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(rt.env, rt.creds, Version); err != nil {
		rt.Close()
		fail("%v", err)
	}
}
