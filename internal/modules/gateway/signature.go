package gateway

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
)

type SignatureAlg string

// Protocol version strings declared alongside the signature. Sign and verify
// must use the same algorithm as the deployment's declared version; mixing
// them silently breaks verification.
const (
	AlgHMACSHA256 SignatureAlg = "HMAC_SHA256_V1"
	AlgHMACSHA512 SignatureAlg = "HMAC_SHA512_V2"
)

func (a SignatureAlg) hashFunc() func() hash.Hash {
	if a == AlgHMACSHA512 {
		return sha512.New
	}
	return sha256.New
}

// deriveOrderKey produces the per-order HMAC key: the order token, zero-padded
// to the cipher block size, encrypted with 3DES-CBC (zero IV) under the
// base64-decoded shared secret. Binding the key to the order prevents
// replaying one order's signature onto another's parameters.
func deriveOrderKey(secretB64, orderToken string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secretB64))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding secret key: %v", ErrSignatureComputation, err)
	}

	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureComputation, err)
	}

	data := []byte(orderToken)
	if rem := len(data) % des.BlockSize; rem != 0 {
		data = append(data, make([]byte, des.BlockSize-rem)...)
	}

	iv := make([]byte, des.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// Sign computes the keyed digest of the encoded parameter envelope under the
// per-order derived key and returns it in standard base64.
func Sign(envelope, orderToken, secretB64 string, alg SignatureAlg) (string, error) {
	if orderToken == "" {
		return "", fmt.Errorf("%w: empty order token", ErrSignatureComputation)
	}

	key, err := deriveOrderKey(secretB64, orderToken)
	if err != nil {
		return "", err
	}

	mac := hmac.New(alg.hashFunc(), key)
	mac.Write([]byte(envelope))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares in constant time. The received
// signature may arrive in URL-safe base64; it is normalized before comparison.
func Verify(envelope, orderToken, signature, secretB64 string, alg SignatureAlg) bool {
	expected, err := Sign(envelope, orderToken, secretB64, alg)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(normalizeBase64(signature)))
}
