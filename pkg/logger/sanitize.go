package logger

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// MaskAddress hides the host part of an IP address (e.g. "203.0.113.***", "2001:db8:85a3::***")
func MaskAddress(address string) string {
	ip := net.ParseIP(address)
	if ip == nil {
		if address == "unknown" {
			return address
		}
		return "[invalid-address]"
	}

	if v4 := ip.To4(); v4 != nil {
		parts := strings.Split(v4.String(), ".")
		parts[3] = "***"
		return strings.Join(parts, ".")
	}

	// keep the /48 routing prefix of IPv6 addresses
	b := ip.To16()
	return fmt.Sprintf("%x:%x:%x::***",
		int(b[0])<<8|int(b[1]), int(b[2])<<8|int(b[3]), int(b[4])<<8|int(b[5]))
}

// AddressAttr returns a client address attribute, masked in production
func AddressAttr(key, address, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, MaskAddress(address))
	}
	return slog.String(key, address)
}

// SanitizeQueryString reports whether a query string carries sensitive parameters
// and should be redacted as a whole
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"token",
		"secret",
		"api_key",
		"apikey",
		"auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
