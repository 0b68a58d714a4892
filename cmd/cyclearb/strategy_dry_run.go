package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/dnavarro/cyclearb/config"
)

// runStrategyDryRun wires the same engine as "run" but bounds it to a
// timeout and forces DryRun, so it exits after a handful of ticks instead
// of running until signaled.
func runStrategyDryRun(args []string) error {
	fs := flag.NewFlagSet("strategy-dry-run", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	duration := fs.Duration("duration", 30*time.Second, "how long to run before exiting")
	verbose := fs.Bool("verbose", false, "set log level to debug")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("strategy-dry-run: load config: %w", err)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	wired, err := buildEngine(context.Background(), cfg, true)
	if err != nil {
		return fmt.Errorf("strategy-dry-run: %w", err)
	}
	defer wired.Ledger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	slog.Info("cyclearb strategy-dry-run starting",
		"config", *configPath,
		"duration", *duration,
		"pairs", wired.Pairs,
		"landers", wired.Stack.Count(),
	)

	if err := wired.Engine.Run(ctx); err != nil {
		return fmt.Errorf("strategy-dry-run: engine exited: %w", err)
	}
	slog.Info("cyclearb strategy-dry-run finished")
	return nil
}
