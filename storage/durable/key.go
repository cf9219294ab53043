package durable

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EncodeKey maps a namespace onto a key that is safe as a file name, a NATS
// KV key and a memcached key. Letters, digits, '-' and '_' pass through;
// every other byte becomes "=XX". The mapping is injective, so distinct
// namespaces never share a record.
func EncodeKey(namespace string) string {
	const hexDigits = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(namespace))
	for i := 0; i < len(namespace); i++ {
		c := namespace[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('=')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		}
	}
	return b.String()
}

// boundedKey returns prefix+EncodeKey(namespace), replacing the encoded part
// with its SHA-256 when the result would exceed maxLen.
func boundedKey(prefix, namespace string, maxLen int) string {
	key := prefix + EncodeKey(namespace)
	if len(key) <= maxLen {
		return key
	}
	sum := sha256.Sum256([]byte(namespace))
	return prefix + "sha256-" + hex.EncodeToString(sum[:])
}
