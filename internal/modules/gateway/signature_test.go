package gateway

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 24-byte 3DES key, base64-encoded like the real merchant secret.
var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdefghijklmn"))

var otherSecret = base64.StdEncoding.EncodeToString([]byte("nmlkjihgfedcba9876543210"))

func TestSignVerify(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{
		"Ds_Order":    "000000000042",
		"Ds_Response": "0000",
	})
	require.NoError(t, err)

	sig, err := Sign(envelope, "000000000042", testSecret, AlgHMACSHA256)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	assert.True(t, Verify(envelope, "000000000042", sig, testSecret, AlgHMACSHA256))
}

func TestVerifySignatureBinding(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{"Ds_Order": "000000000042"})
	require.NoError(t, err)
	other, err := EncodeMerchantParameters(map[string]string{"Ds_Order": "000000000043"})
	require.NoError(t, err)

	sig, err := Sign(envelope, "000000000042", testSecret, AlgHMACSHA256)
	require.NoError(t, err)

	// Changing any one of envelope, order token or secret must break it.
	assert.False(t, Verify(other, "000000000042", sig, testSecret, AlgHMACSHA256))
	assert.False(t, Verify(envelope, "000000000043", sig, testSecret, AlgHMACSHA256))
	assert.False(t, Verify(envelope, "000000000042", sig, otherSecret, AlgHMACSHA256))
	assert.False(t, Verify(envelope, "000000000042", sig, testSecret, AlgHMACSHA512))
}

func TestVerifyURLSafeSignature(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{"Ds_Order": "000000000042"})
	require.NoError(t, err)

	sig, err := Sign(envelope, "000000000042", testSecret, AlgHMACSHA256)
	require.NoError(t, err)

	// Gateways may deliver the signature in URL-safe base64 without padding.
	urlSafe := strings.TrimRight(strings.ReplaceAll(strings.ReplaceAll(sig, "+", "-"), "/", "_"), "=")
	assert.True(t, Verify(envelope, "000000000042", urlSafe, testSecret, AlgHMACSHA256))
}

func TestSignSHA512(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{"Ds_Order": "000000000042"})
	require.NoError(t, err)

	sig, err := Sign(envelope, "000000000042", testSecret, AlgHMACSHA512)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	assert.True(t, Verify(envelope, "000000000042", sig, testSecret, AlgHMACSHA512))
	assert.False(t, Verify(envelope, "000000000042", sig, testSecret, AlgHMACSHA256))
}

func TestSignKeyErrors(t *testing.T) {
	envelope := "e30="

	_, err := Sign(envelope, "000000000042", "%%%not-base64%%%", AlgHMACSHA256)
	assert.ErrorIs(t, err, ErrSignatureComputation)

	// 3DES requires a 24-byte key.
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, err = Sign(envelope, "000000000042", short, AlgHMACSHA256)
	assert.ErrorIs(t, err, ErrSignatureComputation)

	_, err = Sign(envelope, "", testSecret, AlgHMACSHA256)
	assert.ErrorIs(t, err, ErrSignatureComputation)
}

func TestSignDeterministic(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{"Ds_Order": "000000000042"})
	require.NoError(t, err)

	a, err := Sign(envelope, "000000000042", testSecret, AlgHMACSHA256)
	require.NoError(t, err)
	b, err := Sign(envelope, "000000000042", testSecret, AlgHMACSHA256)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
