package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prelude-sh/prelude/internal/hostctx"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	logger := newLogger()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-V":
			fmt.Printf("prelude %s\n", Version)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "init":
			if err := runInit(os.Args[2:], logger); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "report":
			if err := runReport(os.Args[2:], logger); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Default: emit the init fragment, optionally for an explicit shell.
	if err := runEmit(os.Args[1:], logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Debug output goes to stderr only when
// PRELUDE_DEBUG is set, so the emitted script on stdout stays clean.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv(hostctx.EnvDebug) != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printUsage() {
	fmt.Println("prelude - declarative shell environment generator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  prelude [shell]       Emit the init script (zsh, bash, fish, pwsh)")
	fmt.Println("  prelude init [shell]  Create the config skeleton and rc-file hook")
	fmt.Println("  prelude report        Summarize the parsed configuration")
	fmt.Println("  prelude --version     Show version information")
	fmt.Println()
	fmt.Println("Add to your shell startup file:")
	fmt.Println("  eval \"$(prelude)\"        # zsh, bash")
	fmt.Println("  prelude | source          # fish")
	fmt.Println("  (& prelude) | Out-String | Invoke-Expression  # pwsh")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PRELUDE_CONFIG  Path to prelude.lua (default: $XDG_CONFIG_HOME/prelude/prelude.lua)")
	fmt.Println("  PRELUDE_SHELL   Override shell detection")
	fmt.Println("  PRELUDE_DEBUG   Enable debug logging on stderr")
}
