package clob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Sign produces the request signature the exchange expects: HMAC-SHA256
// over METHOD + PATH + TIMESTAMP + BODY, no separators, encoded as
// standard base64 with padding.
//
// The body must be the exact byte sequence transmitted on the wire; callers
// serialize once and pass those bytes here. A nil body signs as the empty
// string.
func Sign(secret, method, path string, timestamp int64, body []byte) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret is required")
	}
	if method == "" || path == "" {
		return "", fmt.Errorf("method and path are required")
	}

	preimage := method + path + strconv.FormatInt(timestamp, 10) + string(body)

	mac := hmac.New(sha256.New, hmacKey(secret))
	mac.Write([]byte(preimage))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// hmacKey resolves the HMAC key bytes from a secret. The exchange has
// issued secrets both base64- and base64url-encoded, so url-safe characters
// are canonicalized before decoding; a value outside the base64 alphabet is
// used as a raw UTF-8 key.
func hmacKey(secret string) []byte {
	canonical := strings.ReplaceAll(secret, "-", "+")
	canonical = strings.ReplaceAll(canonical, "_", "/")
	if !isBase64(canonical) {
		return []byte(secret)
	}
	key, err := base64.StdEncoding.DecodeString(canonical)
	if err != nil {
		return []byte(secret)
	}
	return key
}

func isBase64(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}
