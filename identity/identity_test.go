package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBase58(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	id, err := FromBase58(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), id.PublicKey())
}

func TestFromBase58_Invalid(t *testing.T) {
	_, err := FromBase58("not-base58!!")
	require.Error(t, err)
}

func TestFromBase58_WrongLength(t *testing.T) {
	// A public key is valid base58 but only 32 bytes.
	_, err := FromBase58(solana.NewWallet().PublicKey().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key length")
}

func TestFromKeygenFile(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	values := make([]int, len(key))
	for i, b := range []byte(key) {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	id, err := FromKeygenFile(path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), id.PublicKey())
}

func TestFromKeygenFile_WrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2,3]"), 0o600))

	_, err := FromKeygenFile(path)
	require.Error(t, err)
}

func TestEphemeral(t *testing.T) {
	first, err := Ephemeral()
	require.NoError(t, err)
	second, err := Ephemeral()
	require.NoError(t, err)

	assert.NotEqual(t, first.PublicKey(), second.PublicKey())
}

func TestSigner_OnlySignsOwnKey(t *testing.T) {
	id, err := Ephemeral()
	require.NoError(t, err)

	signer := id.Signer()
	assert.NotNil(t, signer(id.PublicKey()))

	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	assert.Nil(t, signer(other.PublicKey()))
}
