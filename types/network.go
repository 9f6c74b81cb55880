package types

import "strings"

// Network identifies a supported Solana environment.
type Network string

const (
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet" // testnet
	NetworkSolanaTestnet Network = "solana-testnet"
)

// AllNetworks lists every network the facilitator knows about, in the order
// they are reported by the supported/health endpoints.
func AllNetworks() []Network {
	return []Network{NetworkSolanaMainnet, NetworkSolanaDevnet, NetworkSolanaTestnet}
}

// IsSolana reports whether the identifier carries the solana prefix. Payloads
// for other chain families are rejected before any connection lookup.
func (n Network) IsSolana() bool {
	return strings.HasPrefix(string(n), "solana")
}

func (n Network) IsTestnet() bool {
	return n == NetworkSolanaDevnet || n == NetworkSolanaTestnet
}

func (n Network) String() string {
	return string(n)
}
