package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/gateway"
)

// Builds a correctly signed gateway notification for a payment and POSTs it
// to a locally running server, so the reconciliation path can be exercised
// without the real gateway.
func main() {
	target := flag.String("url", "http://localhost:8080/payment/redsys/notification", "Notification URL")
	secret := flag.String("secret", os.Getenv("REDSYS_SECRET_KEY"), "Base64 shared secret (must match the active gateway config)")
	paymentID := flag.Int64("payment-id", 0, "Payment id to notify about")
	env := flag.String("env", "test", "Environment the order token is built for (test, production)")
	response := flag.String("response", "0000", "Gateway response code (0-99 = authorized)")
	amount := flag.Int64("amount", 29900, "Amount in minor units")
	alg := flag.String("alg", string(gateway.AlgHMACSHA256), "Signature version (HMAC_SHA256_V1, HMAC_SHA512_V2)")
	dryRun := flag.Bool("dry-run", false, "Only print the signed payload, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and REDSYS_SECRET_KEY not set\n")
		os.Exit(1)
	}
	if *paymentID <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -payment-id is required\n")
		os.Exit(1)
	}

	token, err := gateway.OrderToken(*paymentID, gateway.Environment(*env))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building order token: %v\n", err)
		os.Exit(1)
	}

	params := map[string]string{
		"Ds_Order":    token,
		"Ds_Response": *response,
		"Ds_Amount":   strconv.FormatInt(*amount, 10),
		"Ds_Currency": "978",
	}

	envelope, err := gateway.EncodeMerchantParameters(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding parameters: %v\n", err)
		os.Exit(1)
	}

	signature, err := gateway.Sign(envelope, token, *secret, gateway.SignatureAlg(*alg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Ds_Order: %s\n", token)
	fmt.Printf("Ds_MerchantParameters: %s\n", envelope)
	fmt.Printf("Ds_Signature: %s\n", signature)

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *target)
	form := url.Values{}
	form.Set("Ds_MerchantParameters", envelope)
	form.Set("Ds_Signature", signature)

	resp, err := http.PostForm(*target, form)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
