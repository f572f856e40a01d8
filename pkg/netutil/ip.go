package netutil

import (
	"net"
	"net/http"
	"strings"
)

const forwardedForHeader = "X-Forwarded-For"

// GetClientIP returns the originating client address of a request, preferring
// the first X-Forwarded-For hop when running behind a proxy
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get(forwardedForHeader); len(forwarded) > 0 {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if len(first) > 0 {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsLocalhost reports whether ip refers to the local machine
func IsLocalhost(ip string) bool {
	if ip == "localhost" {
		return true
	}

	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
