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

// runSwapInstructions fetches a quote and materializes its swap
// instructions, printing the program IDs and account counts per
// instruction so a route can be sanity-checked before the engine ever
// assembles a transaction around it.
func runSwapInstructions(args []string) error {
	fs := flag.NewFlagSet("swap-instructions", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	input := fs.String("input", "", "input mint (base58)")
	output := fs.String("output", "", "output mint (base58)")
	amount := fs.Uint64("amount", 1_000_000_000, "input amount, in the input mint's base units")
	user := fs.String("user", "", "payer public key (base58); defaults to engine.signer_keypair_path's key")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		return fmt.Errorf("swap-instructions: -input and -output are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("swap-instructions: load config: %w", err)
	}
	setupLogger(cfg.Log)

	inputMint, err := solana.PublicKeyFromBase58(*input)
	if err != nil {
		return fmt.Errorf("swap-instructions: invalid -input: %w", err)
	}
	outputMint, err := solana.PublicKeyFromBase58(*output)
	if err != nil {
		return fmt.Errorf("swap-instructions: invalid -output: %w", err)
	}

	payer := *user
	if payer == "" {
		if cfg.Engine.SignerKeypairPath == "" {
			return fmt.Errorf("swap-instructions: -user or engine.signer_keypair_path is required")
		}
		signer, err := loadSignerPublicKey(cfg.Engine.SignerKeypairPath)
		if err != nil {
			return fmt.Errorf("swap-instructions: %w", err)
		}
		payer = signer.String()
	}

	var rpcClient ports.RPC
	if cfg.Engine.RPCEndpoint != "" {
		rpcClient = solanarpc.New(cfg.Engine.RPCEndpoint)
	}
	aggClient, err := buildAggregatorClient(cfg, rpcClient, nil)
	if err != nil {
		return fmt.Errorf("swap-instructions: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pair := domain.TradePair{Input: inputMint, Output: outputMint}
	q, err := aggClient.Quote(ctx, ports.QuoteRequest{Pair: pair, Amount: *amount}, nil)
	if err != nil {
		return fmt.Errorf("swap-instructions: quote: %w", err)
	}

	variant, err := aggClient.SwapInstructions(ctx, ports.SwapInstructionsRequest{
		Quote:          q,
		User:           payer,
		WrapSOL:        true,
		SharedAccounts: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("swap-instructions: %w", err)
	}

	bundle := domain.NewInstructionBundle(variant)
	fmt.Printf("kind=%d compute_unit_limit=%d prioritization_fee=%d lookup_tables=%d\n",
		variant.Kind, variant.ComputeUnitLimit, variant.PrioritizationFee, len(variant.LookupTables.Keys))
	for i, ix := range bundle.Flatten() {
		fmt.Printf("  [%02d] program=%s accounts=%d data_bytes=%d\n",
			i, ix.ProgramID(), len(ix.Accounts()), len(mustData(ix)))
	}
	return nil
}

func mustData(ix solana.Instruction) []byte {
	data, err := ix.Data()
	if err != nil {
		return nil
	}
	return data
}

func loadSignerPublicKey(path string) (solana.PublicKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key.PublicKey(), nil
}
