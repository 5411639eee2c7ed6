package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/engine"
	"github.com/prelude-sh/prelude/internal/hostctx"
)

// runReport handles `prelude report`: parse the config, dry-run the engine
// and print each module's terminal state. Detection runs for real, so the
// report shows exactly what an emit on this host would activate.
func runReport(args []string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	if len(args) != 0 {
		return fmt.Errorf("usage: prelude report")
	}

	host, err := hostctx.New(ctx)
	if err != nil {
		return err
	}
	if _, err := host.LocateConfig(); err != nil {
		return fmt.Errorf("%w\nRun 'prelude init' to create a starter config", err)
	}

	cfg, err := config.NewParser(host.Platform).ParseFile(host.ConfigPath)
	if err != nil {
		return err
	}
	logger.Debug("config parsed", "path", host.ConfigPath)

	eng := engine.New(host, cfg, logger)
	sh := eng.EffectiveShell()
	rep, err := eng.DryRun(ctx, sh)
	if err != nil {
		return err
	}

	fmt.Println("prelude report")
	fmt.Printf("  config:         %s\n", host.ConfigPath)
	fmt.Printf("  schema version: %d\n", cfg.Meta.SchemaVersion)
	fmt.Printf("  platform:       %s\n", host.Platform)
	fmt.Printf("  host:           %s\n", host.Host)
	fmt.Printf("  shell:          %s (default %s)\n", sh, cfg.Meta.DefaultShell)
	fmt.Println()

	printModuleReports(config.GroupCloud, rep.Cloud)
	printModuleReports(config.GroupApps, rep.Apps)
	printModuleReports(config.GroupHooks, rep.Hooks)
	printModuleReports(config.GroupTemplates, rep.Templates)
	return nil
}

func printModuleReports(group string, mods []engine.ModuleReport) {
	fmt.Printf("  %s: %d module(s)\n", group, len(mods))
	for _, m := range mods {
		if m.Version != "" {
			fmt.Printf("    - %-16s %s (version %s)\n", m.Name, m.State, m.Version)
			continue
		}
		fmt.Printf("    - %-16s %s\n", m.Name, m.State)
	}
}
