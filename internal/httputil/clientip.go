// Package httputil holds small request helpers shared by the API layer.
package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address a request came from, for logging and
// per-client stream limits. With trustProxy set, the leftmost valid
// X-Forwarded-For entry and then X-Real-IP are preferred over RemoteAddr.
// Header values that do not parse as IP addresses are skipped.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
			if ip, ok := parseIP(first); ok {
				return ip
			}
		}
		if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}
