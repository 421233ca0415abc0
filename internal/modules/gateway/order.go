package gateway

import (
	"fmt"
	"strconv"
	"time"
)

type Environment string

const (
	EnvTest       Environment = "test"
	EnvProduction Environment = "production"
)

// The gateway mandates a fixed-width order number. In production the payment
// id is simply zero-padded. The test platform shares merchant accounts across
// integrators and rejects reused order numbers (SIS0051), so test tokens carry
// the zero-padded payment id in a fixed leading subfield plus a time-derived
// suffix in the trailing subfield. Recovery always reads the leading subfield,
// never guesses substring lengths.
const (
	orderTokenWidth   = 12
	orderLeadingWidth = 8
	orderSuffixWidth  = orderTokenWidth - orderLeadingWidth
)

func OrderToken(paymentID int64, env Environment) (string, error) {
	if paymentID <= 0 {
		return "", fmt.Errorf("%w: payment id %d", ErrMalformedOrder, paymentID)
	}

	if env == EnvProduction {
		if paymentID >= 1e12 {
			return "", fmt.Errorf("%w: payment id %d exceeds token width", ErrMalformedOrder, paymentID)
		}
		return fmt.Sprintf("%0*d", orderTokenWidth, paymentID), nil
	}

	if paymentID >= 1e8 {
		return "", fmt.Errorf("%w: payment id %d exceeds leading subfield", ErrMalformedOrder, paymentID)
	}
	// Sub-second counter: tenths of a millisecond within the current second.
	suffix := (time.Now().UnixNano() / int64(100*time.Microsecond)) % 1e4
	return fmt.Sprintf("%0*d%0*d", orderLeadingWidth, paymentID, orderSuffixWidth, suffix), nil
}

// PaymentIDFromToken recovers the payment id from an order token. It reports
// ErrMalformedOrder for tokens that cannot carry an id at all; whether the id
// actually exists is the caller's concern (ErrUnknownOrder).
func PaymentIDFromToken(token string, env Environment) (int64, error) {
	if len(token) != orderTokenWidth {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOrder, token)
	}

	field := token
	if env != EnvProduction {
		field = token[:orderLeadingWidth]
	}

	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOrder, token)
	}
	return id, nil
}
