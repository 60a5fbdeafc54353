package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateSecret returns n random bytes encoded as unpadded URL-safe base64.
func GenerateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Digester computes keyed HMAC-SHA256 digests of bearer secrets so that only
// the digest needs to be stored.
type Digester struct {
	key []byte
}

func NewDigester(key string) *Digester {
	return &Digester{key: []byte(key)}
}

// Sum returns the hex encoded digest of value.
func (d *Digester) Sum(value string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
