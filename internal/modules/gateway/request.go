package gateway

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire field names are fixed by the gateway protocol and case-sensitive.
const (
	paramAmount          = "DS_MERCHANT_AMOUNT"
	paramOrder           = "DS_MERCHANT_ORDER"
	paramMerchantCode    = "DS_MERCHANT_MERCHANTCODE"
	paramCurrency        = "DS_MERCHANT_CURRENCY"
	paramTransactionType = "DS_MERCHANT_TRANSACTIONTYPE"
	paramTerminal        = "DS_MERCHANT_TERMINAL"
	paramMerchantURL     = "DS_MERCHANT_MERCHANTURL"
	paramURLOK           = "DS_MERCHANT_URLOK"
	paramURLKO           = "DS_MERCHANT_URLKO"
	paramDescription     = "DS_MERCHANT_PRODUCTDESCRIPTION"
	paramMerchantName    = "DS_MERCHANT_MERCHANTNAME"

	// Notification field carrying the order token back.
	notifyOrderField    = "Ds_Order"
	notifyResponseField = "Ds_Response"
)

const (
	currencyEUR          = "978"
	transactionAuthorize = "0"
	merchantDisplayName  = "Chiangmai Academy"
	maxDescriptionLen    = 125
	terminalWidth        = 3

	notificationPath = "/payment/redsys/notification"
	returnOKPath     = "/payment/redsys/ok"
	returnKOPath     = "/payment/redsys/ko"
)

// PaymentRequest is everything the purchase page needs to render the
// auto-submitting redirect form towards the gateway.
type PaymentRequest struct {
	EndpointURL        string `json:"endpoint_url"`
	SignatureVersion   string `json:"Ds_SignatureVersion"`
	MerchantParameters string `json:"Ds_MerchantParameters"`
	Signature          string `json:"Ds_Signature"`
	OrderToken         string `json:"-"`
}

type BuildInput struct {
	PaymentID   int64
	Amount      float64 // currency units, normalized to 2 decimals upstream
	Description string
	// Origin of the incoming request (scheme://host), used for callback URLs
	// when the config has no public base URL override.
	RequestOrigin string
}

// BuildPaymentRequest composes the outbound payment request: order token,
// domain parameter mapping, canonical envelope and per-order signature. It
// fails closed when the configuration is missing credentials; the caller must
// not render a payment form in that case.
func BuildPaymentRequest(in BuildInput, cfg Config) (PaymentRequest, error) {
	if !cfg.Complete() {
		return PaymentRequest{}, ErrConfigIncomplete
	}
	if in.Amount <= 0 {
		return PaymentRequest{}, fmt.Errorf("%w: %v", ErrInvalidAmount, in.Amount)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(in.RequestOrigin, "/")
	}
	if base == "" {
		return PaymentRequest{}, fmt.Errorf("%w: no callback base url", ErrConfigIncomplete)
	}

	token, err := OrderToken(in.PaymentID, cfg.Env())
	if err != nil {
		return PaymentRequest{}, err
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "Curso"
	}
	if r := []rune(desc); len(r) > maxDescriptionLen {
		desc = string(r[:maxDescriptionLen])
	}

	params := map[string]string{
		paramAmount:          strconv.FormatInt(MinorUnits(in.Amount), 10),
		paramOrder:           token,
		paramMerchantCode:    cfg.MerchantCode,
		paramCurrency:        currencyEUR,
		paramTransactionType: transactionAuthorize,
		paramTerminal:        zeroPad(cfg.Terminal, terminalWidth),
		paramMerchantURL:     base + notificationPath,
		paramURLOK:           base + returnOKPath,
		paramURLKO:           base + returnKOPath,
		paramDescription:     desc,
		paramMerchantName:    merchantDisplayName,
	}

	envelope, err := EncodeMerchantParameters(params)
	if err != nil {
		return PaymentRequest{}, err
	}

	signature, err := Sign(envelope, token, cfg.SecretKey, cfg.Alg())
	if err != nil {
		return PaymentRequest{}, err
	}

	return PaymentRequest{
		EndpointURL:        cfg.EndpointURL(),
		SignatureVersion:   string(cfg.Alg()),
		MerchantParameters: envelope,
		Signature:          signature,
		OrderToken:         token,
	}, nil
}

// MinorUnits converts an amount in currency units to the gateway's integer
// minor-unit representation. Amounts must already be normalized to 2 decimal
// places; the rounding here only absorbs float representation noise.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
