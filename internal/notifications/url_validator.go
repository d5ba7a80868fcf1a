package notifications

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/MacJediWizard/modlicense/internal/httpclient"
)

// ValidateWebhookURL checks that a webhook URL is well formed and does not
// resolve to a private or reserved address. When requireHTTPS is true only
// HTTPS URLs are accepted.
func ValidateWebhookURL(urlStr string, requireHTTPS bool) error {
	if strings.TrimSpace(urlStr) == "" {
		return fmt.Errorf("webhook URL is required")
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if requireHTTPS {
			return fmt.Errorf("webhook URL must use HTTPS")
		}
	default:
		return fmt.Errorf("webhook URL must use HTTP or HTTPS scheme")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("webhook URL must have a host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if httpclient.IsBlockedIP(ip) {
			return fmt.Errorf("webhook URL resolves to blocked address %s", host)
		}
		return nil
	}

	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("failed to resolve webhook host %q: %w", host, err)
	}
	for _, ipStr := range ips {
		if ip := net.ParseIP(ipStr); ip != nil && httpclient.IsBlockedIP(ip) {
			return fmt.Errorf("webhook URL resolves to blocked address %s", ipStr)
		}
	}
	return nil
}
