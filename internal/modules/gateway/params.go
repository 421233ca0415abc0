package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeMerchantParameters serializes a parameter set into the transport
// envelope: compact JSON with lexicographically sorted keys, base64-encoded.
// Empty values are dropped before serialization. The signature is computed
// over the exact envelope string, so encoding must be deterministic;
// encoding/json already emits map keys in sorted order.
func EncodeMerchantParameters(params map[string]string) (string, error) {
	clean := make(map[string]string, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		clean[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(clean); err != nil {
		return "", fmt.Errorf("encoding merchant parameters: %w", err)
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")

	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeMerchantParameters is the exact inverse of EncodeMerchantParameters.
// The gateway delivers the envelope in either standard or URL-safe base64, so
// the alphabet is normalized before decoding.
func DecodeMerchantParameters(envelope string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(normalizeBase64(envelope))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	var params map[string]string
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return params, nil
}

// normalizeBase64 maps URL-safe alphabet characters back to the standard
// alphabet and restores stripped padding.
func normalizeBase64(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}
