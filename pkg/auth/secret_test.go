package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWeakSecret(t *testing.T) {
	assert.True(t, IsWeakSecret("password"))
	assert.True(t, IsWeakSecret("  ChangeMe "))
	assert.False(t, IsWeakSecret("k3v!n-portfolio-signing-2025"))
}

func TestWithinLength(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected bool
	}{
		{"empty", "", false},
		{"single char", "a", true},
		{"exactly max", strings.Repeat("a", MaxSecretLength), true},
		{"over max", strings.Repeat("a", MaxSecretLength+1), false},
		{"multibyte at max", strings.Repeat("é", MaxSecretLength), true},
		{"150 chars", strings.Repeat("x", 150), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WithinLength(tt.secret))
		})
	}
}

func TestCompareSecret(t *testing.T) {
	assert.True(t, CompareSecret("T@lentPreview2025", "T@lentPreview2025"))
	assert.False(t, CompareSecret("T@lentPreview2024", "T@lentPreview2025"))
	assert.False(t, CompareSecret("t@lentpreview2025", "T@lentPreview2025"))
	assert.False(t, CompareSecret("", "T@lentPreview2025"))
	assert.False(t, CompareSecret("T@lentPreview2025 ", "T@lentPreview2025"))
}
