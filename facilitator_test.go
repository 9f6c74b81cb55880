package facilitator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-solana/identity"
	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/types"
)

type fakeRPC struct{}

func (fakeRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            solana.Hash(solana.NewWallet().PublicKey()),
			LastValidBlockHeight: 100,
		},
	}, nil
}

func (fakeRPC) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	return &rpc.SimulateTransactionResponse{Value: &rpc.SimulateTransactionResult{}}, nil
}

func (fakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not implemented")
}

func (fakeRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
}

func (fakeRPC) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	return &rpc.GetTransactionResult{Meta: &rpc.TransactionMeta{}}, nil
}

func testFacilitator(t *testing.T) *Facilitator {
	t.Helper()

	id, err := identity.Ephemeral()
	require.NoError(t, err)

	reg := registry.NewWithClients(map[types.Network]registry.RPCClient{
		types.NetworkSolanaDevnet:  fakeRPC{},
		types.NetworkSolanaTestnet: fakeRPC{},
	})

	f, err := New(
		&Config{Timeout: time.Second, PollInterval: 10 * time.Millisecond},
		WithRegistry(reg),
		WithIdentity(id),
	)
	require.NoError(t, err)
	return f
}

func TestNew_Defaults(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	// All known networks are configured by default, with a fresh identity.
	for _, network := range types.AllNetworks() {
		assert.True(t, f.IsNetworkSupported(network))
	}
	assert.NotEmpty(t, f.PublicKey())
}

func TestNew_RejectsNonSolanaEndpoint(t *testing.T) {
	_, err := New(&Config{
		Endpoints: map[types.Network]string{"polygon": "http://localhost:8899"},
	})
	require.Error(t, err)

	var facErr *types.FacilitatorError
	require.ErrorAs(t, err, &facErr)
	assert.Equal(t, types.ErrUnsupportedNetwork, facErr.Code)
}

func TestSupported(t *testing.T) {
	f := testFacilitator(t)

	resp := f.Supported()
	require.Len(t, resp.Kinds, 2)

	for _, kind := range resp.Kinds {
		assert.Equal(t, 1, kind.X402Version)
		assert.Equal(t, "exact", kind.Scheme)
		assert.True(t, kind.FacilitatorPaysGas)
		assert.Equal(t, f.PublicKey(), kind.FacilitatorPublicKey)
	}

	assert.Equal(t, "solana-devnet", resp.Kinds[0].Network)
	assert.Equal(t, "solana-testnet", resp.Kinds[1].Network)
}

func TestHealth(t *testing.T) {
	f := testFacilitator(t)

	health := f.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, f.PublicKey(), health.FacilitatorPublicKey)
	assert.ElementsMatch(t, []string{"solana-devnet", "solana-testnet"}, health.Networks)
}

func TestCreateAndVerifySponsoredRoundTrip(t *testing.T) {
	f := testFacilitator(t)

	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	requirements := &types.PaymentRequirements{
		Scheme:            "exact",
		Network:           "solana-devnet",
		MaxAmountRequired: "1000",
		PayTo:             solana.NewWallet().PublicKey().String(),
		Asset:             solana.NewWallet().PublicKey().String(),
	}

	sponsored, err := f.CreateSponsoredTransaction(context.Background(), payer.PublicKey().String(), requirements)
	require.NoError(t, err)
	assert.Equal(t, f.PublicKey(), sponsored.FacilitatorPublicKey)

	// The constructed transaction flows back through verification as a
	// sponsored payload.
	sig, err := payer.Sign([]byte("authorization"))
	require.NoError(t, err)

	inner, err := json.Marshal(map[string]any{
		"userSignature":          sig.String(),
		"facilitatorTransaction": sponsored.Transaction,
		"userPublicKey":          payer.PublicKey().String(),
	})
	require.NoError(t, err)

	result, err := f.Verify(context.Background(), &types.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "solana-devnet",
		Payload:     inner,
	}, requirements)
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.True(t, result.GasSponsoredByFacilitator)
	assert.Equal(t, f.PublicKey(), result.Payer)
}
