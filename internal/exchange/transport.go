package exchange

import (
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// TransportOptions configures the default HTTP client.
type TransportOptions struct {
	// ProxyURL routes both http and https traffic through one proxy when set.
	ProxyURL string
	// TruststorePath points at a PEM bundle that replaces the system roots when set.
	TruststorePath string
	Timeout        time.Duration
	UserAgent      string
}

// NewTransport builds a resty client from opts.
func NewTransport(opts TransportOptions) (*resty.Client, error) {
	client := resty.New()

	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: proxy url %q", ErrTransportConfig, opts.ProxyURL)
		}
		client.SetProxy(u.String())
	}

	if opts.TruststorePath != "" {
		pemBytes, err := os.ReadFile(opts.TruststorePath)
		if err != nil {
			return nil, fmt.Errorf("%w: truststore: %v", ErrTransportConfig, err)
		}
		if !x509.NewCertPool().AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("%w: truststore %q contains no certificates", ErrTransportConfig, opts.TruststorePath)
		}
		client.SetRootCertificateFromString(string(pemBytes))
	}

	return client, nil
}
