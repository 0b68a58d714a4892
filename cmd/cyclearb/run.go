package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/dnavarro/cyclearb/config"
)

// runRun wires and starts the full scheduler -> dispatcher -> evaluator ->
// assembler -> builder -> landing loop, mirroring cmd/scanner/main.go's
// single-function startup shape extended with this engine's extra stages.
func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	dryRun := fs.Bool("dry-run", false, "force dry-run regardless of config")
	verbose := fs.Bool("verbose", false, "set log level to debug")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("run: load config: %w", err)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wired, err := buildEngine(ctx, cfg, *dryRun)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer wired.Ledger.Close()

	slog.Info("cyclearb starting",
		"config", *configPath,
		"dry_run", cfg.Engine.DryRun || *dryRun,
		"pairs", wired.Pairs,
		"landers", wired.Stack.Count(),
	)

	if err := wired.Engine.Run(ctx); err != nil {
		return fmt.Errorf("run: engine exited: %w", err)
	}
	slog.Info("cyclearb stopped cleanly")
	return nil
}
