package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyRoundTrip(t *testing.T) {
	raw, err := DecodePubkey(WSOLMint)
	require.NoError(t, err)
	require.Len(t, raw, PubkeyLen)

	back, err := EncodePubkey(raw)
	require.NoError(t, err)
	assert.Equal(t, WSOLMint, back)
}

func TestDecodePubkey_Invalid(t *testing.T) {
	_, err := DecodePubkey("not base58 0OIl")
	require.Error(t, err)

	// Valid base58 but not 32 bytes.
	_, err = DecodePubkey("abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32 bytes")
}

func TestEncodePubkey_WrongLength(t *testing.T) {
	_, err := EncodePubkey(make([]byte, 16))
	require.Error(t, err)
}

func TestIsOnCurve(t *testing.T) {
	// The system program id decodes to the all-zero encoding, a valid point.
	assert.True(t, IsOnCurve("11111111111111111111111111111111"))
	assert.False(t, IsOnCurve("tooshort"))
}
