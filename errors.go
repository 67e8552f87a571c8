package botauth

import (
	"errors"

	"github.com/MrEthical07/botauth/assertion"
	"github.com/MrEthical07/botauth/internal/exchange"
)

var (
	// ErrKeyRead is returned when the bot's RSA private key cannot be read.
	ErrKeyRead = assertion.ErrKeyRead
	// ErrSigning is returned when the key is malformed or signing fails.
	ErrSigning = assertion.ErrSigning
	// ErrExchangeRejected is returned when an identity endpoint answers with a non-200 status.
	ErrExchangeRejected = exchange.ErrRejected
	// ErrExchangeResponse is returned when a 200 answer carries no usable token.
	ErrExchangeResponse = exchange.ErrMalformedResponse
	// ErrNetwork is returned when the HTTP transport fails.
	ErrNetwork = exchange.ErrNetwork
	// ErrRetriesExhausted is returned when the bounded retry budget runs out.
	ErrRetriesExhausted = errors.New("authentication retries exhausted")
	// ErrInvalidConfig is returned by configuration validation and loading.
	ErrInvalidConfig = errors.New("invalid authenticator configuration")
	// ErrAuthenticatorNotReady is returned when a nil or closed authenticator is used.
	ErrAuthenticatorNotReady = errors.New("authenticator not ready")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// ExchangeError carries the endpoint and HTTP status of a rejected token exchange.
// It matches [ErrExchangeRejected] under errors.Is.
type ExchangeError = exchange.StatusError
