package main

import (
	"flag"
	"fmt"
	"os"
)

const defaultConfigYAML = `engine:
  tick_interval_seconds: 5
  dispatch_interval_ms: 50
  process_delay_ms: 0
  concurrency_limit: 8
  landing_deadline_ms: 2000
  min_profit_lamports: 50000
  tip_strategy: fraction
  tip_fraction_bps: 1000
  dry_run: true
  rpc_endpoint: "https://api.mainnet-beta.solana.com"
  signer_keypair_path: "./keypair.json"

pairs:
  pairs:
    - input: "So11111111111111111111111111111111111111112"
      output: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
      sizes: [1000000000, 5000000000]
      interval_seconds: 5

aggregators:
  sources:
    - kind: jupiterlike
      name: jupiter
      base_url: "http://127.0.0.1:8080"

lease:
  ips: []
  per_ip_inflight_limit: 2
  rate_limit_per_second: 5
  cooldown_seconds: 10

flashloan:
  enabled: false

multi_leg:
  enabled: false

landers:
  stack:
    - name: rpc-primary
      transport: rpc
  strategy: broadcast_all
  top_k: 1

pureblind:
  enabled: false
  snapshot_dir: cache
  snapshot_ttl_minutes: 10

storage:
  dsn: cyclearb.db

log:
  level: info
  format: text
`

// runInit writes a default config.yaml to disk, refusing to overwrite an
// existing file unless -force is given.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	out := fs.String("out", "config/config.yaml", "path to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, err := os.Stat(*out); err == nil {
			return fmt.Errorf("init: %s already exists; pass -force to overwrite", *out)
		}
	}

	if err := os.WriteFile(*out, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("init: write %s: %w", *out, err)
	}
	fmt.Println("wrote", *out)
	return nil
}
