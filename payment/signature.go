package payment

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Signature is the request hash the gateway verifies:
// hex(sha1(hex(md5(upper(orderID + amount + currency + description + secret))))).
// amount must already be formatted with two decimals.
func Signature(orderID, amount, currency, description, secret string) string {
	inner := md5.Sum([]byte(strings.ToUpper(orderID + amount + currency + description + secret)))
	outer := sha1.Sum([]byte(hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}
