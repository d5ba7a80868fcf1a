package httpclient

import (
	"context"
	"fmt"
	"net"
	"time"
)

// blockedCIDRs are private and reserved ranges outbound requests must not reach.
var blockedCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var parsedBlockedNets []*net.IPNet

func init() {
	for _, cidr := range blockedCIDRs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid blocked CIDR %q: %v", cidr, err))
		}
		parsedBlockedNets = append(parsedBlockedNets, ipNet)
	}
}

// IsBlockedIP reports whether ip is private, loopback, link-local or unspecified.
func IsBlockedIP(ip net.IP) bool {
	if ip.IsUnspecified() {
		return true
	}
	for _, blocked := range parsedBlockedNets {
		if blocked.Contains(ip) {
			return true
		}
	}
	return false
}

// GuardedDialer returns a DialContext that resolves the host at connect time
// and only dials addresses outside the blocked ranges, which defeats DNS
// rebinding between validation and use.
func GuardedDialer() func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("resolve host %q: %w", host, err)
		}

		var lastErr error
		for _, ipAddr := range ips {
			if IsBlockedIP(ipAddr.IP) {
				continue
			}
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("all resolved addresses for %q are blocked", host)
	}
}
