package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// EndpointAddress returns the host:port dialed for a collector URL. A URL
// without a port uses the scheme's default.
func EndpointAddress(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// ProbeEndpoint checks that a TCP connection to the collector endpoint can
// be opened within timeout.
func ProbeEndpoint(ctx context.Context, endpoint string, timeout time.Duration) error {
	addr, err := EndpointAddress(endpoint)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("endpoint %s unreachable: %w", addr, err)
	}
	return conn.Close()
}

// EndpointCheck returns a check that probes the collector endpoint.
func EndpointCheck(endpoint string) CheckFunc {
	return func(ctx context.Context) error {
		// The checker bounds ctx; the probe timeout only has to be larger.
		return ProbeEndpoint(ctx, endpoint, time.Minute)
	}
}
