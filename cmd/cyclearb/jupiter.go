package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dnavarro/cyclearb/internal/jupiterproc"
)

// localBinaryInstaller satisfies jupiterproc.Installer for a binary the
// operator has already placed on disk. Version-tagged release fetching
// (original_source's updater.rs) is out of scope for this CLI; this
// installer only ever reports the one path it was given.
type localBinaryInstaller struct {
	path    string
	version string
}

func (l *localBinaryInstaller) EnsureInstalled(context.Context) (jupiterproc.BinaryInstall, error) {
	return jupiterproc.BinaryInstall{Version: l.version, Path: l.path, UpdatedAt: time.Now()}, nil
}

func (l *localBinaryInstaller) Update(context.Context, string) (jupiterproc.BinaryInstall, error) {
	return jupiterproc.BinaryInstall{}, fmt.Errorf("jupiter: version-tagged updates are not supported; replace the binary at %s directly", l.path)
}

// runJupiter starts, stops, restarts, or reports the status of the local
// Jupiter-style aggregator process.
func runJupiter(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("jupiter: expected a subcommand (start|stop|restart|status)")
	}
	action := args[0]
	fs := flag.NewFlagSet("jupiter "+action, flag.ExitOnError)
	binPath := fs.String("bin", "./jupiter-swap-api", "path to the aggregator binary")
	pidFile := fs.String("pidfile", "jupiter.pid", "pidfile path")
	port := fs.String("port", "8080", "port the aggregator binary listens on")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	sup := jupiterproc.New(
		&localBinaryInstaller{path: *binPath, version: "local"},
		jupiterproc.Config{PidFile: *pidFile, Args: []string{"--port", *port}},
	)

	ctx := context.Background()
	switch action {
	case "start":
		if err := sup.Start(ctx); err != nil {
			return fmt.Errorf("jupiter: start: %w", err)
		}
		fmt.Println("jupiter: started, status =", sup.Status())
	case "stop":
		if err := sup.Stop(); err != nil {
			return fmt.Errorf("jupiter: stop: %w", err)
		}
		fmt.Println("jupiter: stopped")
	case "restart":
		if err := sup.Restart(ctx); err != nil {
			return fmt.Errorf("jupiter: restart: %w", err)
		}
		fmt.Println("jupiter: restarted, status =", sup.Status())
	case "status":
		fmt.Println("jupiter: status =", sup.Status())
	default:
		return fmt.Errorf("jupiter: unknown action %q (want start|stop|restart|status)", action)
	}
	return nil
}
