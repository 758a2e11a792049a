// Package config loads the unified node configuration from YAML files and
// environment overrides (spec §6.5), grounded on the teacher's
// pkg/config/config.go Load/LoadFromEnv shape.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// LedgerConfig configures the masked-ledger layer (spec §3.1, §4.10).
type LedgerConfig struct {
	Depth           int    `mapstructure:"depth" json:"depth"`
	AccountCreationFee uint64 `mapstructure:"account_creation_fee" json:"account_creation_fee"`
	GenesisFile     string `mapstructure:"genesis_file" json:"genesis_file"`
}

// SnarkConfig configures the SNARK work pool and worker fan-out (spec §4.6).
type SnarkConfig struct {
	WorkerCount   int  `mapstructure:"worker_count" json:"worker_count"`
	FeeMinimum    uint64 `mapstructure:"fee_minimum" json:"fee_minimum"`
	AutoGenerate  bool `mapstructure:"auto_generate" json:"auto_generate"`
}

// P2pConfig configures the connection/channel layer (spec §4.5, §4.9).
type P2pConfig struct {
	ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
	MaxPeers       int      `mapstructure:"max_peers" json:"max_peers"`
	BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	DemeritThreshold int    `mapstructure:"demerit_threshold" json:"demerit_threshold"`
	RpcConcurrency int      `mapstructure:"rpc_concurrency" json:"rpc_concurrency"`
}

// TransitionFrontierConfig configures the sync pipeline (spec §4.2, §4.3).
type TransitionFrontierConfig struct {
	Depth            uint64 `mapstructure:"depth" json:"depth"`
	LedgerSyncConcurrency int `mapstructure:"ledger_sync_concurrency" json:"ledger_sync_concurrency"`
}

// TxPoolConfig configures transaction-pool acceptance (spec §4.4 ambient).
type TxPoolConfig struct {
	MaxSize    int `mapstructure:"max_size" json:"max_size"`
	MinFee     uint64 `mapstructure:"min_fee" json:"min_fee"`
}

// BlockProducerConfig configures optional block production (spec §4.7/§4.8).
type BlockProducerConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	PublicKey  string `mapstructure:"public_key" json:"public_key"`
}

// ArchiveConfig configures the optional archive sink (SPEC_FULL supplement).
type ArchiveConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	PostgresURL  string `mapstructure:"postgres_url" json:"postgres_url"`
}

// GlobalConfig carries cross-cutting settings (spec §6.5's top-level keys).
type GlobalConfig struct {
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	RpcAddr  string `mapstructure:"rpc_addr" json:"rpc_addr"`
}

// Config is the unified node configuration; it mirrors the YAML layout
// under cmd/node/config.
type Config struct {
	Global             GlobalConfig             `mapstructure:"global" json:"global"`
	Ledger             LedgerConfig             `mapstructure:"ledger" json:"ledger"`
	Snark              SnarkConfig              `mapstructure:"snark" json:"snark"`
	P2p                P2pConfig                `mapstructure:"p2p" json:"p2p"`
	TransitionFrontier TransitionFrontierConfig `mapstructure:"transition_frontier" json:"transition_frontier"`
	TxPool             TxPoolConfig             `mapstructure:"tx_pool" json:"tx_pool"`
	BlockProducer      BlockProducerConfig      `mapstructure:"block_producer" json:"block_producer"`
	Archive            ArchiveConfig            `mapstructure:"archive" json:"archive"`
}

// Default returns a config with conservative, locally-runnable defaults.
func Default() Config {
	return Config{
		Global: GlobalConfig{LogLevel: "info", RpcAddr: "127.0.0.1:8302"},
		Ledger: LedgerConfig{Depth: 35, AccountCreationFee: 1},
		Snark:  SnarkConfig{WorkerCount: 1, FeeMinimum: 0},
		P2p: P2pConfig{
			ListenAddr:       "/ip4/0.0.0.0/tcp/8303",
			MaxPeers:         50,
			DemeritThreshold: 20,
			RpcConcurrency:   8,
		},
		TransitionFrontier: TransitionFrontierConfig{Depth: 290, LedgerSyncConcurrency: 8},
		TxPool:             TxPoolConfig{MaxSize: 3000, MinFee: 0},
	}
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads cmd/node/config/default.yaml and merges an env-specific
// overlay (e.g. "devnet", "mainnet") when env is non-empty, then applies
// environment-variable overrides (spec §6.5 "config precedence").
func Load(env string) (*Config, error) {
	AppConfig = Default()

	v := viper.New()
	v.SetConfigName("default")
	v.AddConfigPath("cmd/node/config")
	v.AddConfigPath("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: load default config: %w", err)
		}
	}

	if env != "" {
		v.SetConfigName(env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: merge %s config: %w", env, err)
		}
	}

	v.AutomaticEnv()
	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the NODE_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(envOrDefault("NODE_ENV", ""))
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// Validate checks cross-field invariants Load's Unmarshal can't express
// (spec §6.5 "config validate").
func (c *Config) Validate() error {
	if c.Ledger.Depth <= 0 {
		return fmt.Errorf("config: ledger.depth must be positive, got %d", c.Ledger.Depth)
	}
	if c.P2p.MaxPeers <= 0 {
		return fmt.Errorf("config: p2p.max_peers must be positive, got %d", c.P2p.MaxPeers)
	}
	if c.Snark.WorkerCount < 0 {
		return fmt.Errorf("config: snark.worker_count must be non-negative, got %d", c.Snark.WorkerCount)
	}
	if c.BlockProducer.Enabled && c.BlockProducer.PublicKey == "" {
		return fmt.Errorf("config: block_producer.enabled requires a public_key")
	}
	if c.Archive.Enabled && c.Archive.PostgresURL == "" {
		return fmt.Errorf("config: archive.enabled requires a postgres_url")
	}
	return nil
}
