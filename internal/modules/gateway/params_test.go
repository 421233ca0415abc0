package gateway

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMerchantParametersRoundTrip(t *testing.T) {
	params := map[string]string{
		"DS_MERCHANT_AMOUNT":       "29900",
		"DS_MERCHANT_ORDER":        "000000000042",
		"DS_MERCHANT_MERCHANTCODE": "999008881",
		"DS_MERCHANT_CURRENCY":     "978",
	}

	envelope, err := EncodeMerchantParameters(params)
	require.NoError(t, err)

	decoded, err := DecodeMerchantParameters(envelope)
	require.NoError(t, err)
	assert.Equal(t, params, decoded)

	// Round-trip law: re-encoding the decode yields the same envelope.
	again, err := EncodeMerchantParameters(decoded)
	require.NoError(t, err)
	assert.Equal(t, envelope, again)
}

func TestEncodeMerchantParametersDropsEmptyValues(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{
		"DS_MERCHANT_ORDER":              "000000000042",
		"DS_MERCHANT_PRODUCTDESCRIPTION": "",
	})
	require.NoError(t, err)

	decoded, err := DecodeMerchantParameters(envelope)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DS_MERCHANT_ORDER": "000000000042"}, decoded)
}

func TestEncodeMerchantParametersDeterministic(t *testing.T) {
	// Same logical parameter set assembled in different insertion orders must
	// produce byte-identical envelopes, since the signature covers the bytes.
	a := map[string]string{}
	a["DS_MERCHANT_AMOUNT"] = "1000"
	a["DS_MERCHANT_ORDER"] = "000000000007"
	a["DS_MERCHANT_TERMINAL"] = "001"

	b := map[string]string{}
	b["DS_MERCHANT_TERMINAL"] = "001"
	b["DS_MERCHANT_ORDER"] = "000000000007"
	b["DS_MERCHANT_AMOUNT"] = "1000"

	ea, err := EncodeMerchantParameters(a)
	require.NoError(t, err)
	eb, err := EncodeMerchantParameters(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)
}

func TestEncodeMerchantParametersNoHTMLEscaping(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{
		"DS_MERCHANT_MERCHANTURL": "https://academy.example/payment/redsys/notification?a=1&b=2",
	})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "&")
	assert.NotContains(t, string(raw), `\u0026`)
}

func TestDecodeMerchantParametersURLSafeBase64(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{
		"Ds_Order":    "000000000042",
		"Ds_Response": "0000",
	})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)
	urlSafe := base64.RawURLEncoding.EncodeToString(raw)

	decoded, err := DecodeMerchantParameters(urlSafe)
	require.NoError(t, err)
	assert.Equal(t, "0000", decoded["Ds_Response"])
}

func TestDecodeMerchantParametersMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid base64":  "%%%not-base64%%%",
		"not json":        base64.StdEncoding.EncodeToString([]byte("not json at all")),
		"wrong structure": base64.StdEncoding.EncodeToString([]byte(`["a","b"]`)),
	}
	for name, envelope := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMerchantParameters(envelope)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDecodeMerchantParametersEmptyObject(t *testing.T) {
	envelope, err := EncodeMerchantParameters(map[string]string{})
	require.NoError(t, err)

	decoded, err := DecodeMerchantParameters(envelope)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
