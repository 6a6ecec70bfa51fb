package payuri

import (
	"fmt"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

// Build formats a payment URI:
//
//	<scheme><address>?amount=<amount>[&message=<memo>]
//
// The memo is appended verbatim, without URL escaping. Wallets are
// inconsistent about decoding escaped URIs, so the raw text is passed
// through; callers must keep the memo URI-safe themselves.
func Build(scheme, address string, amount float64, memo string) string {
	uri := fmt.Sprintf("%s%s?amount=%s", scheme, address, FormatAmount(amount))
	if memo != "" {
		uri += "&message=" + memo
	}
	return uri
}

// FormatAmount renders an amount in minimal decimal form, with no
// trailing zeros ("1.5", not "1.500000")
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// QRPNG encodes a payment URI as a PNG image suitable for inline
// display. When encoding fails the caller is expected to fall back to
// presenting the raw URI as copyable text.
func QRPNG(uri string, size int) ([]byte, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR image: %w", err)
	}
	return png, nil
}
