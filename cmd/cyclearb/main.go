// Command cyclearb is the arbitrage executor's CLI entrypoint: a thin
// dispatch table of subcommands, mirroring the teacher's
// cmd/scanner/{main,live,paper,backtest}.go split of one main.go plus one
// run* function per mode.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dnavarro/cyclearb/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "run":
		err = runRun(args)
	case "strategy-dry-run":
		err = runStrategyDryRun(args)
	case "quote":
		err = runQuote(args)
	case "swap-instructions":
		err = runSwapInstructions(args)
	case "jupiter":
		err = runJupiter(args)
	case "lander":
		err = runLander(args)
	case "pureblind":
		err = runPureblind(args)
	case "init":
		err = runInit(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "cyclearb: unknown subcommand %q\n", sub)
		usage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error("cyclearb: "+sub+" failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cyclearb <subcommand> [flags]

subcommands:
  run                run the scheduler/dispatcher/evaluator/landing loop
  strategy-dry-run   run the configured engine for -duration without submitting
  quote              quote every configured aggregator and print the best
  swap-instructions  materialize and print the instruction bundle for a quote
  jupiter            manage the local Jupiter-style aggregator process
  lander             list configured landers
  pureblind          arrange configured pools into a closed on-chain cycle
  init               write a default config.yaml`)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
