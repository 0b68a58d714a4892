package main

import (
	"flag"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/config"
	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/pureblind"
)

// runPureblind arranges configured pool accounts into a closed cycle and
// prints it, per spec.md §4.12 steps 3-4. It stops short of encoding swap
// instructions: that step needs a pureblind.PoolAdapter, and this repo
// doesn't carry a concrete one for any specific DEX (see DESIGN.md), and
// buildEngine registers no strategy for domain.VariantPureBlind, so
// engine.PureBlindStrategy.BuildInstructions is unreachable from the live
// engine.
// This subcommand only exercises the adapter-independent half of the
// package: arranging already-described pools (config-supplied mints rather
// than decoded account bytes) into a cycle.
func runPureblind(args []string) error {
	fs := flag.NewFlagSet("pureblind", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("pureblind: load config: %w", err)
	}
	setupLogger(cfg.Log)

	if !cfg.Pureblind.Enabled {
		return fmt.Errorf("pureblind: pureblind.enabled is false in %s", *configPath)
	}

	pools, err := buildPureblindPools(cfg.Pureblind.Pools)
	if err != nil {
		return fmt.Errorf("pureblind: %w", err)
	}

	preferredBases := make([]domain.Mint, 0, len(cfg.Pureblind.PreferredBases))
	for _, b := range cfg.Pureblind.PreferredBases {
		mint, err := solana.PublicKeyFromBase58(b)
		if err != nil {
			return fmt.Errorf("pureblind: invalid preferred_bases entry %q: %w", b, err)
		}
		preferredBases = append(preferredBases, mint)
	}

	cycle, ok := pureblind.BuildCycle(pools, preferredBases)
	if !ok {
		return fmt.Errorf("pureblind: pools %v do not arrange into a closed cycle", cfg.Pureblind.Pools)
	}

	fmt.Printf("cycle: %d steps\n", len(cycle.Steps))
	for i, s := range cycle.Steps {
		fmt.Printf("  [%d] pool=%s base_to_quote=%v in=%s out=%s dex_kind=%s\n",
			i, s.Pool.Address, s.BaseToQuote, s.InputMint, s.OutputMint, s.Pool.DEXKind)
	}
	return nil
}

// buildPureblindPools converts config-supplied pool descriptors straight
// into pureblind.DecodedPool, skipping PoolAdapter.Decode since the
// mint/program/DEX-kind fields are already known from config rather than
// raw account bytes.
func buildPureblindPools(cfg []config.PureblindPoolConfig) ([]pureblind.DecodedPool, error) {
	pools := make([]pureblind.DecodedPool, 0, len(cfg))
	for _, p := range cfg {
		address, err := solana.PublicKeyFromBase58(p.Address)
		if err != nil {
			return nil, fmt.Errorf("pool %q: invalid address: %w", p.Address, err)
		}
		baseMint, err := solana.PublicKeyFromBase58(p.BaseMint)
		if err != nil {
			return nil, fmt.Errorf("pool %q: invalid base_mint: %w", p.Address, err)
		}
		quoteMint, err := solana.PublicKeyFromBase58(p.QuoteMint)
		if err != nil {
			return nil, fmt.Errorf("pool %q: invalid quote_mint: %w", p.Address, err)
		}
		baseTokenProgram, err := solana.PublicKeyFromBase58(p.BaseTokenProgram)
		if err != nil {
			return nil, fmt.Errorf("pool %q: invalid base_token_program: %w", p.Address, err)
		}
		quoteTokenProgram, err := solana.PublicKeyFromBase58(p.QuoteTokenProgram)
		if err != nil {
			return nil, fmt.Errorf("pool %q: invalid quote_token_program: %w", p.Address, err)
		}
		pools = append(pools, pureblind.DecodedPool{
			Address:           address,
			BaseMint:          baseMint,
			QuoteMint:         quoteMint,
			BaseTokenProgram:  baseTokenProgram,
			QuoteTokenProgram: quoteTokenProgram,
			DEXKind:           p.DEXKind,
		})
	}
	return pools, nil
}
