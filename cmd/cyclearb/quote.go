package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/config"
	"github.com/dnavarro/cyclearb/internal/adapters/solanarpc"
	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// runQuote quotes one pair/size against every configured aggregator through
// the fan-out client and prints the best response, for poking at a
// pair/size combination without running the engine.
func runQuote(args []string) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	input := fs.String("input", "", "input mint (base58)")
	output := fs.String("output", "", "output mint (base58)")
	amount := fs.Uint64("amount", 1_000_000_000, "input amount, in the input mint's base units")
	slippageBps := fs.Uint("slippage-bps", 50, "slippage tolerance in basis points")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		return fmt.Errorf("quote: -input and -output are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("quote: load config: %w", err)
	}
	setupLogger(cfg.Log)

	inputMint, err := solana.PublicKeyFromBase58(*input)
	if err != nil {
		return fmt.Errorf("quote: invalid -input: %w", err)
	}
	outputMint, err := solana.PublicKeyFromBase58(*output)
	if err != nil {
		return fmt.Errorf("quote: invalid -output: %w", err)
	}

	var rpcClient ports.RPC
	if cfg.Engine.RPCEndpoint != "" {
		rpcClient = solanarpc.New(cfg.Engine.RPCEndpoint)
	}
	aggClient, err := buildAggregatorClient(cfg, rpcClient, nil)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	q, err := aggClient.Quote(ctx, ports.QuoteRequest{
		Pair:        domain.TradePair{Input: inputMint, Output: outputMint},
		Amount:      *amount,
		SlippageBps: uint16(*slippageBps),
	}, nil)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	fmt.Printf("provider=%s quote_id=%s amount_in=%d amount_out=%d min_out=%d slippage_bps=%d context_slot=%d latency_ms=%d\n",
		q.ProviderTag, q.QuoteID, q.AmountIn, q.AmountOut, q.MinOutAmount, q.SlippageBps, q.ContextSlot, q.LatencyMs)
	return nil
}
