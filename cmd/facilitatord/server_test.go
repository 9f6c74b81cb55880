package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	facilitator "github.com/vitwit/x402-solana"
	"github.com/vitwit/x402-solana/identity"
	"github.com/vitwit/x402-solana/registry"
	"github.com/vitwit/x402-solana/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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
	return &rpc.GetTransactionResult{
		Slot: 77,
		Meta: &rpc.TransactionMeta{Fee: 5000},
	}, nil
}

func testRouter(t *testing.T) (*gin.Engine, *facilitator.Facilitator) {
	t.Helper()

	id, err := identity.Ephemeral()
	require.NoError(t, err)

	reg := registry.NewWithClients(map[types.Network]registry.RPCClient{
		types.NetworkSolanaDevnet: fakeRPC{},
	})

	f, err := facilitator.New(
		&facilitator.Config{Timeout: time.Second, PollInterval: 10 * time.Millisecond},
		facilitator.WithRegistry(reg),
		facilitator.WithIdentity(id),
	)
	require.NoError(t, err)

	return newRouter(f, false), f
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func requirementsBody() map[string]any {
	return map[string]any{
		"scheme":            "exact",
		"network":           "solana-devnet",
		"maxAmountRequired": "1000",
		"payTo":             solana.NewWallet().PublicKey().String(),
		"asset":             solana.NewWallet().PublicKey().String(),
	}
}

func TestSupportedEndpoint(t *testing.T) {
	router, f := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/supported", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.SupportedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Kinds, 1)
	assert.Equal(t, "solana-devnet", resp.Kinds[0].Network)
	assert.True(t, resp.Kinds[0].FacilitatorPaysGas)
	assert.Equal(t, f.PublicKey(), resp.Kinds[0].FacilitatorPublicKey)
}

func TestHealthEndpoint(t *testing.T) {
	router, f := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp facilitator.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, f.PublicKey(), resp.FacilitatorPublicKey)
	assert.Equal(t, []string{"solana-devnet"}, resp.Networks)
}

func TestCreateSponsoredTransactionEndpoint(t *testing.T) {
	router, f := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/create-sponsored-transaction", map[string]any{
		"userPublicKey":       solana.NewWallet().PublicKey().String(),
		"paymentRequirements": requirementsBody(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp createSponsoredResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Transaction)
	assert.Equal(t, f.PublicKey(), resp.FacilitatorPublicKey)
	assert.Equal(t, "facilitator", resp.FeePaidBy)
}

func TestCreateSponsoredTransactionEndpoint_MissingRequirements(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/create-sponsored-transaction", map[string]any{
		"userPublicKey": solana.NewWallet().PublicKey().String(),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp createSponsoredResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestVerifyEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("authorization only accepted", func(t *testing.T) {
		key, err := solana.NewRandomPrivateKey()
		require.NoError(t, err)
		sig, err := key.Sign([]byte("payment"))
		require.NoError(t, err)
		payer := solana.NewWallet().PublicKey().String()

		w := doJSON(t, router, http.MethodPost, "/verify", map[string]any{
			"paymentPayload": map[string]any{
				"x402Version": 1,
				"scheme":      "exact",
				"network":     "solana-devnet",
				"payload": map[string]any{
					"signature": sig.String(),
					"payer":     payer,
				},
			},
			"paymentRequirements": requirementsBody(),
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp verifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.True(t, resp.IsValid)
		assert.Nil(t, resp.InvalidReason)
		assert.Equal(t, payer, resp.Payer)
	})

	t.Run("unrecognized payload rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/verify", map[string]any{
			"paymentPayload": map[string]any{
				"network": "solana-devnet",
				"payload": map[string]any{"foo": "1"},
			},
			"paymentRequirements": requirementsBody(),
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp verifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.IsValid)
		require.NotNil(t, resp.InvalidReason)
		assert.Contains(t, *resp.InvalidReason, "Unrecognized payload format")
	})

	t.Run("incomplete requirements rejected", func(t *testing.T) {
		key, err := solana.NewRandomPrivateKey()
		require.NoError(t, err)
		sig, err := key.Sign([]byte("payment"))
		require.NoError(t, err)

		w := doJSON(t, router, http.MethodPost, "/verify", map[string]any{
			"paymentPayload": map[string]any{
				"network": "solana-devnet",
				"payload": map[string]any{
					"signature": sig.String(),
					"payer":     solana.NewWallet().PublicKey().String(),
				},
			},
			"paymentRequirements": map[string]any{"scheme": "exact"},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp verifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.IsValid)
		require.NotNil(t, resp.InvalidReason)
		assert.Contains(t, *resp.InvalidReason, "validation failed")
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("{")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSettleEndpoint_AuthorizationOnly(t *testing.T) {
	router, _ := testRouter(t)

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	sig, err := key.Sign([]byte("payment"))
	require.NoError(t, err)
	payer := solana.NewWallet().PublicKey().String()

	w := doJSON(t, router, http.MethodPost, "/settle", map[string]any{
		"paymentPayload": map[string]any{
			"x402Version": 1,
			"scheme":      "exact",
			"network":     "solana-devnet",
			"payload": map[string]any{
				"signature": sig.String(),
				"payer":     payer,
			},
		},
		"paymentRequirements": requirementsBody(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp settleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "solana-devnet", resp.Network)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, sig.String(), *resp.Transaction)
	require.NotNil(t, resp.Payer)
	assert.Equal(t, payer, *resp.Payer)
	assert.Equal(t, uint64(77), resp.Slot)
	assert.True(t, resp.UserPaidGas)
}

func TestSettleEndpoint_FailureKeepsSignature(t *testing.T) {
	// Broadcast fails at submission; the response is a structured 400.
	router, _ := testRouter(t)

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	sig, err := key.Sign([]byte("payment"))
	require.NoError(t, err)

	signer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			token.NewTransferInstructionBuilder().
				SetAmount(1000).
				SetSourceAccount(solana.NewWallet().PublicKey()).
				SetDestinationAccount(solana.NewWallet().PublicKey()).
				SetOwnerAccount(signer.PublicKey()).
				Build(),
		},
		solana.Hash(solana.NewWallet().PublicKey()),
		solana.TransactionPayer(signer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	})
	require.NoError(t, err)
	encoded, err := tx.ToBase64()
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/settle", map[string]any{
		"paymentPayload": map[string]any{
			"x402Version": 1,
			"scheme":      "exact",
			"network":     "solana-devnet",
			"payload": map[string]any{
				"signature":   sig.String(),
				"transaction": encoded,
			},
		},
		"paymentRequirements": requirementsBody(),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp settleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.ErrorReason)
}

func TestMetricsEndpointToggle(t *testing.T) {
	_, f := testRouter(t)

	withMetrics := newRouter(f, true)
	w := doJSON(t, withMetrics, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	without := newRouter(f, false)
	w = doJSON(t, without, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
