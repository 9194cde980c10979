package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// Header carries the hex encoded HMAC-SHA256 of the raw body
	Header = "X-Webhook-Signature"

	// MinSecretBytes is the minimum size GenerateSecret accepts (192 bits)
	MinSecretBytes = 24

	// MaxSecretBytes is the maximum size GenerateSecret accepts (512 bits)
	MaxSecretBytes = 64
)

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

/* Verify checks a provided signature against the body
 * The comparison runs in constant time; a length mismatch is simply a mismatch
 */
func Verify(body []byte, provided, secret string) bool {
	expected := Sign(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// GenerateSecret creates a random hex secret of size bytes
func GenerateSecret(size int) (string, error) {
	if size < MinSecretBytes || size > MaxSecretBytes {
		return "", fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
