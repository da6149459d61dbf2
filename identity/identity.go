// Package identity derives a stable client identifier from an
// incoming request's network peer and forwarded-for chain.
package identity

import (
	"net"
	"net/http"
	"strings"
)

// Extract returns the client identity for r: the left-most address in
// a well-formed X-Forwarded-For header, or the request's direct peer
// otherwise. A malformed header is ignored rather than rejected — it
// falls back to the direct peer exactly as if the header were absent.
//
// This is the single canonical identity function; nothing else in this
// service derives identity independently.
func Extract(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if id, ok := firstForwardedAddr(fwd); ok {
			return id
		}
	}
	return peerHost(r.RemoteAddr)
}

// firstForwardedAddr returns the left-most address in a comma
// separated X-Forwarded-For chain, stripping an optional port. It
// reports false if the chain's first entry is empty or not a
// parseable IP address.
func firstForwardedAddr(header string) (string, bool) {
	parts := strings.Split(header, ",")
	first := strings.TrimSpace(parts[0])
	if first == "" {
		return "", false
	}
	host := strings.Trim(peerHost(first), "[]")
	if net.ParseIP(host) == nil {
		return "", false
	}
	return host, true
}

// peerHost strips an optional ":port" suffix from addr. If addr isn't
// a valid host:port pair (no port present, or an unparseable literal),
// it is returned unchanged — the identity only needs to be stable, not
// a validated IP.
func peerHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
