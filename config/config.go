// Package config loads the engine's YAML configuration, overridden by
// environment variables, exactly the teacher's config/config.go shape
// (nested struct, Load(path), setDefaults, applyEnvOverrides) extended with
// the sections this domain needs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Pairs       PairsConfig       `yaml:"pairs"`
	Aggregators AggregatorsConfig `yaml:"aggregators"`
	Lease       LeaseConfig       `yaml:"lease"`
	Flashloan   FlashloanConfig   `yaml:"flashloan"`
	Landers     LandersConfig     `yaml:"landers"`
	MultiLeg    MultiLegConfig    `yaml:"multi_leg"`
	Pureblind   PureblindConfig   `yaml:"pureblind"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
}

// PairConfig is one scheduled trade pair: a base mint, its quote mint, and
// the cycle of trade sizes the scheduler rotates through for it.
type PairConfig struct {
	Input           string   `yaml:"input"`
	Output          string   `yaml:"output"`
	Sizes           []uint64 `yaml:"sizes"`
	IntervalSeconds int      `yaml:"interval_seconds"`
}

// PairsConfig lists every scheduled trade pair.
type PairsConfig struct {
	Pairs []PairConfig `yaml:"pairs"`
}

// EngineConfig controls scheduler cadence and dispatch behavior.
type EngineConfig struct {
	TickIntervalSeconds int    `yaml:"tick_interval_seconds"`
	DispatchIntervalMs  int    `yaml:"dispatch_interval_ms"`
	ProcessDelayMs      int    `yaml:"process_delay_ms"`
	ConcurrencyLimit    int    `yaml:"concurrency_limit"`
	LandingDeadlineMs   int    `yaml:"landing_deadline_ms"`
	MinProfitLamports   int64  `yaml:"min_profit_lamports"`
	TipStrategy         string `yaml:"tip_strategy"` // fixed | fraction; any other value, "plan" included, selects fraction
	TipFixedLamports    uint64 `yaml:"tip_fixed_lamports"`
	TipFractionBps      uint32 `yaml:"tip_fraction_bps"`
	DryRun              bool   `yaml:"dry_run"`
	RPCEndpoint         string `yaml:"rpc_endpoint"`
	SignerKeypairPath   string `yaml:"signer_keypair_path"`
}

// AggregatorConfig is one configured quote source.
type AggregatorConfig struct {
	Kind    string `yaml:"kind"` // jupiterlike | okxlike | titan | onchain
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Pools is only read for kind == "onchain": the pool accounts this
	// client prices directly from raw reserve bytes.
	Pools []OnchainPoolConfig `yaml:"pools"`
}

// OnchainPoolConfig describes one constant-product pool account an
// "onchain" aggregator source prices without an HTTP round trip.
type OnchainPoolConfig struct {
	Address            string `yaml:"address"`
	Input              string `yaml:"input"`
	Output             string `yaml:"output"`
	DEXKind            string `yaml:"dex_kind"`
	BaseReserveOffset  int    `yaml:"base_reserve_offset"`
	QuoteReserveOffset int    `yaml:"quote_reserve_offset"`
	FeeNumOffset       int    `yaml:"fee_num_offset"`
	FeeDenOffset       int    `yaml:"fee_den_offset"`
}

// AggregatorsConfig lists every configured quote source.
type AggregatorsConfig struct {
	Sources []AggregatorConfig `yaml:"sources"`
}

// MultiLegLegConfig is one (aggregator_kind, side) descriptor the
// orchestrator dispatches a quote against.
type MultiLegLegConfig struct {
	AggregatorKind string `yaml:"aggregator_kind"`
}

// MultiLegConfig configures the multi-leg orchestrator: which aggregator
// kinds play buy/sell roles, and the (pair, amount) jobs it evaluates each
// tick.
type MultiLegConfig struct {
	Enabled           bool                `yaml:"enabled"`
	BuyLegs           []MultiLegLegConfig `yaml:"buy_legs"`
	SellLegs          []MultiLegLegConfig `yaml:"sell_legs"`
	ParallelThreshold int                 `yaml:"parallel_threshold"`
	PrioritizationFee uint64              `yaml:"prioritization_fee_lamports"`
}

// LeaseConfig controls the IP lease pool.
type LeaseConfig struct {
	IPs                []string `yaml:"ips"`
	PerIPInflightLimit int      `yaml:"per_ip_inflight_limit"`
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second"`
	CooldownSeconds    int      `yaml:"cooldown_seconds"`
}

// FlashloanConfig configures the flash-loan wrapper. ProgramID/LoanAccount/
// Authority and the four discriminators are the lending program's
// "program-specific constants used verbatim" (spec.md §4.6) — this repo
// treats them as opaque, operator-supplied bytes rather than hardcoding one
// specific lending protocol.
type FlashloanConfig struct {
	Enabled              bool     `yaml:"enabled"`
	Protocol             string   `yaml:"protocol"`
	ReserveMint          string   `yaml:"reserve_mint"`
	ProgramID            string   `yaml:"program_id"`
	LoanAccount          string   `yaml:"loan_account"`
	Authority            string   `yaml:"authority"`
	BeginDiscriminator   []byte   `yaml:"begin_discriminator"`
	BorrowDiscriminator  []byte   `yaml:"borrow_discriminator"`
	RepayDiscriminator   []byte   `yaml:"repay_discriminator"`
	EndDiscriminator     []byte   `yaml:"end_discriminator"`
	OverheadComputeUnits uint32   `yaml:"overhead_compute_units"`
	BorrowableMints      []string `yaml:"borrowable_mints"`
}

// LanderConfig is one configured submission backend.
type LanderConfig struct {
	Name       string `yaml:"name"`
	Transport  string `yaml:"transport"` // rpc | staked_relay | private_bundle
	TipAccount string `yaml:"tip_account"`
}

// LandersConfig lists every configured lander and the fan-out strategy.
type LandersConfig struct {
	Stack    []LanderConfig `yaml:"stack"`
	Strategy string         `yaml:"strategy"` // broadcast_all | primary_with_fallback | race_top_k
	TopK     int            `yaml:"top_k"`
}

// PureblindConfig configures the on-chain cycle builder.
type PureblindConfig struct {
	Enabled        bool                `yaml:"enabled"`
	PreferredBases []string            `yaml:"preferred_bases"`
	SnapshotDir    string              `yaml:"snapshot_dir"`
	SnapshotTTLMin int                 `yaml:"snapshot_ttl_minutes"`
	Pools          []PureblindPoolConfig `yaml:"pools"`
}

// PureblindPoolConfig describes one pool account to arrange into a cycle.
// No decode-from-raw-bytes step runs for these: mints and token programs
// are supplied directly, since decoding opaque DEX-specific account bytes
// requires a pureblind.PoolAdapter implementation this repo doesn't carry
// one of (see DESIGN.md).
type PureblindPoolConfig struct {
	Address           string `yaml:"address"`
	BaseMint          string `yaml:"base_mint"`
	QuoteMint         string `yaml:"quote_mint"`
	BaseTokenProgram  string `yaml:"base_token_program"`
	QuoteTokenProgram string `yaml:"quote_token_program"`
	DEXKind           string `yaml:"dex_kind"`
}

// StorageConfig controls where landing history is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file at path and applies a .env overlay if present.
// Environment variables override matching YAML keys.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// TickInterval returns the scheduler tick cadence as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Engine.TickIntervalSeconds) * time.Second
}

// DispatchInterval returns the per-item stagger interval.
func (c *Config) DispatchInterval() time.Duration {
	return time.Duration(c.Engine.DispatchIntervalMs) * time.Millisecond
}

// LandingDeadline returns the landing race's wall-clock budget.
func (c *Config) LandingDeadline() time.Duration {
	return time.Duration(c.Engine.LandingDeadlineMs) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Engine.TickIntervalSeconds <= 0 {
		cfg.Engine.TickIntervalSeconds = 5
	}
	if cfg.Engine.ConcurrencyLimit <= 0 {
		cfg.Engine.ConcurrencyLimit = 8
	}
	if cfg.Engine.LandingDeadlineMs <= 0 {
		cfg.Engine.LandingDeadlineMs = 2_000
	}
	if cfg.Engine.TipStrategy == "" {
		cfg.Engine.TipStrategy = "fraction"
	}
	if cfg.Engine.TipFractionBps == 0 {
		cfg.Engine.TipFractionBps = 1_000 // 10%
	}
	if cfg.Lease.PerIPInflightLimit <= 0 {
		cfg.Lease.PerIPInflightLimit = 2
	}
	if cfg.Lease.RateLimitPerSecond <= 0 {
		cfg.Lease.RateLimitPerSecond = 5
	}
	if cfg.Lease.CooldownSeconds <= 0 {
		cfg.Lease.CooldownSeconds = 10
	}
	if cfg.Landers.Strategy == "" {
		cfg.Landers.Strategy = "broadcast_all"
	}
	if cfg.Pureblind.SnapshotDir == "" {
		cfg.Pureblind.SnapshotDir = "cache"
	}
	if cfg.Pureblind.SnapshotTTLMin <= 0 {
		cfg.Pureblind.SnapshotTTLMin = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "cyclearb.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
