package utils

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-solana/types"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"valid integer", "1000", false},
		{"valid decimal", "0.5", false},
		{"zero", "0", false},
		{"empty", "", true},
		{"negative", "-1", true},
		{"not a number", "abc", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := ValidateAmount(tc.amount)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.amount, dec.String())
		})
	}
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(solana.NewWallet().PublicKey().String()))

	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("tooshort"))
	assert.Error(t, ValidateAddress("0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl")) // not base58
}

func TestValidateSignature(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	sig, err := key.Sign([]byte("payment"))
	require.NoError(t, err)

	assert.NoError(t, ValidateSignature(sig.String()))

	assert.Error(t, ValidateSignature(""))
	assert.Error(t, ValidateSignature("tooshort"))
}

func TestParsePaymentRequirements(t *testing.T) {
	valid := map[string]any{
		"scheme":            "exact",
		"network":           "solana-devnet",
		"maxAmountRequired": "1000",
		"payTo":             solana.NewWallet().PublicKey().String(),
		"asset":             solana.NewWallet().PublicKey().String(),
	}

	raw, err := json.Marshal(valid)
	require.NoError(t, err)

	req, err := ParsePaymentRequirements(raw)
	require.NoError(t, err)
	assert.Equal(t, "exact", req.Scheme)
	assert.Equal(t, "solana-devnet", req.Network)

	t.Run("missing required field", func(t *testing.T) {
		incomplete := map[string]any{"scheme": "exact"}
		raw, err := json.Marshal(incomplete)
		require.NoError(t, err)

		_, err = ParsePaymentRequirements(raw)
		require.Error(t, err)

		var facErr *types.FacilitatorError
		require.ErrorAs(t, err, &facErr)
		assert.Equal(t, types.ErrFormat, facErr.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParsePaymentRequirements([]byte("{"))
		assert.Error(t, err)
	})
}

func TestValidateRequirements_Nil(t *testing.T) {
	err := ValidateRequirements(nil)
	require.Error(t, err)

	var facErr *types.FacilitatorError
	require.ErrorAs(t, err, &facErr)
	assert.Equal(t, types.ErrFormat, facErr.Code)
}
