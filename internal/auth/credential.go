package auth

import (
	pkgauth "github.com/BradenHooton/portfolio-gate/pkg/auth"
)

// CredentialVerifier checks submitted secrets against the single reference secret
type CredentialVerifier struct {
	reference string
}

// NewCredentialVerifier creates a verifier. An empty reference rejects everything.
func NewCredentialVerifier(reference string) *CredentialVerifier {
	return &CredentialVerifier{reference: reference}
}

// Configured reports whether a reference secret is present
func (v *CredentialVerifier) Configured() bool {
	return v.reference != ""
}

// Verify reports whether submitted matches the reference secret exactly.
// Oversized input is rejected before it reaches the comparison.
func (v *CredentialVerifier) Verify(submitted string) bool {
	if !v.Configured() {
		return false
	}
	if !pkgauth.WithinLength(submitted) {
		return false
	}
	return pkgauth.CompareSecret(submitted, v.reference)
}
