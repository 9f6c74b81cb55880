// Package registry maps network identifiers to live Solana RPC connection
// handles. The set of supported networks is fixed at construction; the
// registry is read-only afterward and safe to share across requests.
package registry

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vitwit/x402-solana/types"
)

// RPCClient is the subset of the solana-go RPC surface the facilitator uses.
// Narrowing to an interface allows fakes to be injected in tests.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

var _ RPCClient = (*rpc.Client)(nil)

// Registry holds one connection handle per supported network.
type Registry struct {
	conns map[types.Network]RPCClient
}

// DefaultEndpoints returns the public RPC endpoint for each known network.
func DefaultEndpoints() map[types.Network]string {
	return map[types.Network]string{
		types.NetworkSolanaMainnet: rpc.MainNetBeta_RPC,
		types.NetworkSolanaDevnet:  rpc.DevNet_RPC,
		types.NetworkSolanaTestnet: rpc.TestNet_RPC,
	}
}

// New creates a registry with one rpc.Client per configured endpoint.
// Networks outside the fixed supported set are rejected.
func New(endpoints map[types.Network]string) (*Registry, error) {
	conns := make(map[types.Network]RPCClient, len(endpoints))
	for network, url := range endpoints {
		if !network.IsSolana() {
			return nil, types.NewError(types.ErrUnsupportedNetwork,
				fmt.Sprintf("network %s is not a Solana network", network))
		}
		conns[network] = rpc.New(url)
	}
	return &Registry{conns: conns}, nil
}

// NewWithClients creates a registry from pre-built clients. Used by tests to
// inject fakes.
func NewWithClients(conns map[types.Network]RPCClient) *Registry {
	copied := make(map[types.Network]RPCClient, len(conns))
	for network, client := range conns {
		copied[network] = client
	}
	return &Registry{conns: copied}
}

// Resolve returns the connection handle for a network, or a typed
// unsupported-network error. Verification and settlement surface this
// identically.
func (r *Registry) Resolve(network types.Network) (RPCClient, error) {
	client, ok := r.conns[network]
	if !ok {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("unsupported network: %s", network))
	}
	return client, nil
}

// Networks returns the configured networks in registry declaration order.
func (r *Registry) Networks() []types.Network {
	networks := make([]types.Network, 0, len(r.conns))
	for _, n := range types.AllNetworks() {
		if _, ok := r.conns[n]; ok {
			networks = append(networks, n)
		}
	}
	return networks
}

// IsSupported reports whether a network has a configured connection.
func (r *Registry) IsSupported(network types.Network) bool {
	_, ok := r.conns[network]
	return ok
}
