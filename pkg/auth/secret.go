package auth

import (
	"crypto/subtle"
	"strings"
	"unicode/utf8"
)

// MaxSecretLength bounds submitted secrets before any comparison happens
const MaxSecretLength = 100

// Common weak values rejected for server-held secrets
var weakSecrets = map[string]bool{
	"secret":      true,
	"test":        true,
	"password":    true,
	"password123": true,
	"12345":       true,
	"123456":      true,
	"12345678":    true,
	"changeme":    true,
	"admin":       true,
	"root":        true,
	"default":     true,
	"example":     true,
	"letmein":     true,
	"qwerty":      true,
	"passw0rd":    true,
}

// IsWeakSecret reports whether secret is a well known weak value
func IsWeakSecret(secret string) bool {
	return weakSecrets[strings.ToLower(strings.TrimSpace(secret))]
}

// WithinLength reports whether secret is non-empty and at most MaxSecretLength characters
func WithinLength(secret string) bool {
	n := utf8.RuneCountInString(secret)
	return n > 0 && n <= MaxSecretLength
}

// CompareSecret reports whether submitted equals reference.
// The comparison time does not depend on where the inputs first differ.
func CompareSecret(submitted, reference string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(reference)) == 1
}
