package cryptoutils

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SHA256Size is the digest length of SHA-256 and HMAC-SHA256.
const SHA256Size = sha256.Size

// HMACSHA256 returns HMAC-SHA256(key, data[0] || data[1] || ...).
func HMACSHA256(key []byte, data ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	return mac.Sum(nil)
}

// SHA256 returns the digest of the concatenation of data.
func SHA256(data ...[]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
