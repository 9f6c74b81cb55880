package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/types"
)

// Config is the daemon's environment configuration, loaded under the
// FACILITATOR_ prefix.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8402"`

	MainnetRPCURL string `envconfig:"SOLANA_MAINNET_RPC_URL"`
	DevnetRPCURL  string `envconfig:"SOLANA_DEVNET_RPC_URL"`
	TestnetRPCURL string `envconfig:"SOLANA_TESTNET_RPC_URL"`

	// Base58 secret key for the facilitator identity. An ephemeral key is
	// generated when neither this nor KeygenFile is set.
	SecretKey  string `envconfig:"SECRET_KEY"`
	KeygenFile string `envconfig:"KEYGEN_FILE"`

	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	EnableMetrics bool          `envconfig:"ENABLE_METRICS" default:"false"`
	SettleTimeout time.Duration `envconfig:"SETTLE_TIMEOUT" default:"30s"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("facilitator", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Endpoints returns the RPC endpoint map, public endpoints unless overridden.
func (c *Config) Endpoints() map[types.Network]string {
	endpoints := registry.DefaultEndpoints()
	if c.MainnetRPCURL != "" {
		endpoints[types.NetworkSolanaMainnet] = c.MainnetRPCURL
	}
	if c.DevnetRPCURL != "" {
		endpoints[types.NetworkSolanaDevnet] = c.DevnetRPCURL
	}
	if c.TestnetRPCURL != "" {
		endpoints[types.NetworkSolanaTestnet] = c.TestnetRPCURL
	}
	return endpoints
}
