package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HeaderXForwardedFor is the proxy chain header read by ClientIPExtractor.
const HeaderXForwardedFor = "X-Forwarded-For"

// ParseNetworks parses a comma separated list of CIDRs or single addresses.
// Single addresses become /32 or /128 networks. Blank items are ignored.
func ParseNetworks(list string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(item); err == nil {
			networks = append(networks, network)
			continue
		}
		ip := net.ParseIP(item)
		if ip == nil {
			return nil, fmt.Errorf("invalid network %q", item)
		}
		networks = append(networks, singleIPNetwork(ip))
	}
	return networks, nil
}

func singleIPNetwork(ip net.IP) *net.IPNet {
	bits := 32
	if ip.To4() == nil {
		bits = 128
	} else {
		ip = ip.To4()
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

// ContainsIP reports whether ip falls in any of networks.
func ContainsIP(networks []*net.IPNet, ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range networks {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIPExtractor finds the caller's address behind trusted proxies.
//
// Without trusted proxies only RemoteAddr is used. When the direct peer is a
// trusted proxy, X-Forwarded-For is walked right to left and the first hop
// that is not a trusted proxy wins. Hops left of it were written by the
// client and are never read.
type ClientIPExtractor struct {
	trusted []*net.IPNet
}

// NewClientIPExtractor creates an extractor trusting the given networks.
func NewClientIPExtractor(trusted []*net.IPNet) *ClientIPExtractor {
	return &ClientIPExtractor{trusted: trusted}
}

// Extract returns the client address of r, without port.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	remote := stripPort(r.RemoteAddr)
	if e == nil || len(e.trusted) == 0 || !ContainsIP(e.trusted, remote) {
		return remote
	}

	hops := strings.Split(r.Header.Get(HeaderXForwardedFor), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !ContainsIP(e.trusted, hop) {
			return hop
		}
	}
	return remote
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
