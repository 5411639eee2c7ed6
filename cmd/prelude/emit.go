package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/engine"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/shell"
)

// emitTimeout bounds one full generation run, version probes included.
const emitTimeout = 30 * time.Second

// runEmit handles the default `prelude [shell]` invocation: load the config,
// run the engine, write the script to stdout.
func runEmit(args []string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	out, err := emitScript(ctx, args, logger)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, out)
	return nil
}

// emitScript builds the host context, parses the config and generates the
// init script for the requested (or detected) shell.
func emitScript(ctx context.Context, args []string, logger *slog.Logger) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("usage: prelude [shell]\nSupported shells: zsh, bash, fish, pwsh")
	}

	host, err := hostctx.New(ctx)
	if err != nil {
		return "", err
	}
	if _, err := host.LocateConfig(); err != nil {
		return "", fmt.Errorf("%w\nRun 'prelude init' to create a starter config", err)
	}
	logger.Debug("loading config", "path", host.ConfigPath)

	cfg, err := config.NewParser(host.Platform).ParseFile(host.ConfigPath)
	if err != nil {
		return "", err
	}

	eng := engine.New(host, cfg, logger)

	sh := eng.EffectiveShell()
	if len(args) == 1 {
		parsed, ok := shell.Parse(args[0])
		if !ok {
			return "", fmt.Errorf("unsupported shell: %s\nSupported shells: zsh, bash, fish, pwsh", args[0])
		}
		sh = parsed
	}
	logger.Debug("emitting init script", "shell", sh, "platform", host.Platform, "host", host.Host)

	return eng.Generate(ctx, sh)
}
