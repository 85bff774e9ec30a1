package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClientAddress is the shared bucket for requests without identifying headers
const UnknownClientAddress = "unknown"

// IPConfig holds configuration for client address extraction
type IPConfig struct {
	// TrustedProxies lists CIDR ranges allowed to set forwarding headers.
	// When empty, forwarding headers are always honoured.
	TrustedProxies []string
}

// ExtractClientAddress resolves the rate-limiting key of a request.
//
// Precedence:
// 1. first entry of X-Forwarded-For
// 2. X-Real-IP
// 3. "unknown"
//
// When trusted proxies are configured, the headers are only read from requests
// whose RemoteAddr is a trusted proxy; other requests are keyed by RemoteAddr.
func ExtractClientAddress(r *http.Request, config *IPConfig) string {
	if config != nil && len(config.TrustedProxies) > 0 {
		remoteIP := getRemoteAddr(r)
		if !isTrustedProxy(remoteIP, config.TrustedProxies) {
			return remoteIP
		}
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClientAddress
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return UnknownClientAddress
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}
