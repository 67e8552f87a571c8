package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Endpoint names an identity endpoint and its path below the configured host.
type Endpoint struct {
	Name string
	Path string
}

var (
	// Session issues the token used for general platform API calls.
	Session = Endpoint{Name: "session", Path: "/login/pubkey/authenticate"}
	// KeyManager issues the token used for the key-manager relay API.
	KeyManager = Endpoint{Name: "key_manager", Path: "/relay/pubkey/authenticate"}
)

type tokenRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Client performs token exchanges over a resty client.
type Client struct {
	http *resty.Client
}

// New wraps an already configured resty client.
func New(httpClient *resty.Client) *Client {
	if httpClient == nil {
		httpClient = resty.New()
	}
	return &Client{http: httpClient}
}

// URL joins base and the endpoint path.
func URL(base string, ep Endpoint) string {
	return strings.TrimRight(base, "/") + ep.Path
}

// Exchange posts assertion to ep below base and returns the issued token.
func (c *Client) Exchange(ctx context.Context, base string, ep Endpoint, assertion string) (string, error) {
	target := URL(base, ep)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(tokenRequest{Token: assertion}).
		Post(target)
	if err != nil {
		return "", fmt.Errorf("%w: %s endpoint: %w", ErrNetwork, ep.Name, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{
			Endpoint:   ep.Name,
			URL:        target,
			StatusCode: resp.StatusCode(),
		}
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("%w: %s endpoint: %v", ErrMalformedResponse, ep.Name, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: %s endpoint: missing token field", ErrMalformedResponse, ep.Name)
	}

	return body.Token, nil
}
