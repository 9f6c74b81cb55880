package main

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-solana/types"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8402", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, 30*time.Second, cfg.SettleTimeout)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("FACILITATOR_LISTEN_ADDR", ":9000")
	t.Setenv("FACILITATOR_SETTLE_TIMEOUT", "10s")
	t.Setenv("FACILITATOR_ENABLE_METRICS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.SettleTimeout)
	assert.True(t, cfg.EnableMetrics)
}

func TestEndpoints_Overrides(t *testing.T) {
	cfg := &Config{DevnetRPCURL: "http://localhost:8899"}

	endpoints := cfg.Endpoints()
	assert.Equal(t, "http://localhost:8899", endpoints[types.NetworkSolanaDevnet])
	assert.Equal(t, rpc.MainNetBeta_RPC, endpoints[types.NetworkSolanaMainnet])
	assert.Equal(t, rpc.TestNet_RPC, endpoints[types.NetworkSolanaTestnet])
}
