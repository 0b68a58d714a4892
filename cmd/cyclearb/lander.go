package main

import (
	"flag"
	"fmt"

	"github.com/dnavarro/cyclearb/config"
)

// runLander lists the configured landing backends. Managing staked-relay or
// private-bundle credentials is out of scope; this only reports what a
// config file declares.
func runLander(args []string) error {
	fs := flag.NewFlagSet("lander", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("lander: load config: %w", err)
	}

	stack, err := buildLanderStack(cfg.Landers)
	if err != nil {
		return fmt.Errorf("lander: %w", err)
	}

	fmt.Printf("strategy=%s top_k=%d landers=%d\n", cfg.Landers.Strategy, cfg.Landers.TopK, stack.Count())
	for _, l := range stack.Landers() {
		tip := "-"
		if l.TipAccount != nil {
			tip = l.TipAccount.String()
		}
		fmt.Printf("  %-20s transport=%-15v tip_account=%s\n", l.Name, l.Transport, tip)
	}
	return nil
}
