package botauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the bot credentials and the tuning of the authentication lifecycle.
//
// The credential fields keep the key names used by bot configuration files
// (botRSAPath, botUsername, ...). Config is treated as immutable once passed to
// [Builder.WithConfig].
type Config struct {
	BotRSAPath       string `yaml:"botRSAPath" env:"BOT_RSA_PATH"`
	BotUsername      string `yaml:"botUsername" env:"BOT_USERNAME"`
	SessionAuthHost  string `yaml:"sessionAuthHost" env:"SESSION_AUTH_HOST"`
	KeyAuthHost      string `yaml:"keyAuthHost" env:"KEY_AUTH_HOST"`
	TruststorePath   string `yaml:"truststorePath" env:"TRUSTSTORE_PATH"`
	CompleteProxyURL string `yaml:"completeProxyURL" env:"COMPLETE_PROXY_URL"`

	Retry      RetryConfig      `yaml:"retry" envPrefix:"RETRY_"`
	HTTP       HTTPConfig       `yaml:"http" envPrefix:"HTTP_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	Events     EventsConfig     `yaml:"events" envPrefix:"EVENTS_"`
	SharedGate SharedGateConfig `yaml:"sharedGate" envPrefix:"SHARED_GATE_"`
}

/*
====================================
RETRY CONFIG
====================================
*/

// RetryScope selects what is retried when a token exchange fails.
type RetryScope string

const (
	// RetryScopeExchange retries only the failed exchange, with a freshly signed
	// assertion per attempt and exponential backoff between attempts.
	RetryScopeExchange RetryScope = "exchange"
	// RetryScopeCycle abandons the cycle on a failed exchange and starts over
	// through the rate gate, re-signing and re-running both exchanges.
	RetryScopeCycle RetryScope = "cycle"
)

// RetryConfig bounds the authentication lifecycle. Durations are read from
// files and the environment as duration strings such as "3s" or "500ms"; bare
// integers are rejected.
type RetryConfig struct {
	// MinAuthInterval is the rate gate: cycles start at most once per interval.
	MinAuthInterval time.Duration `yaml:"minAuthInterval" env:"MIN_AUTH_INTERVAL"`
	// DeferredRetryDelay is how long a caller is parked when the gate is closed.
	DeferredRetryDelay time.Duration `yaml:"deferredRetryDelay" env:"DEFERRED_RETRY_DELAY"`
	// MaxCycles caps gate passes (parked waits plus initiated cycles) per Authenticate call.
	MaxCycles        int           `yaml:"maxCycles" env:"MAX_CYCLES"`
	ExchangeAttempts int           `yaml:"exchangeAttempts" env:"EXCHANGE_ATTEMPTS"`
	ExchangeBackoff  time.Duration `yaml:"exchangeBackoff" env:"EXCHANGE_BACKOFF"`
	Scope            RetryScope    `yaml:"scope" env:"SCOPE"`
}

// HTTPConfig tunes the default transport. Ignored when a client is injected.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	UserAgent string        `yaml:"userAgent" env:"USER_AGENT"`
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"enableLatencyHistograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

// EventsConfig controls the asynchronous auth event dispatcher.
type EventsConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	BufferSize int  `yaml:"bufferSize" env:"BUFFER_SIZE"`
	DropIfFull bool `yaml:"dropIfFull" env:"DROP_IF_FULL"`
}

// SharedGateConfig enables the Redis-backed gate shared by replicas of one bot.
// Enabling it requires [Builder.WithRedis].
type SharedGateConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	KeyPrefix string `yaml:"keyPrefix" env:"KEY_PREFIX"`
}

// DefaultConfig returns the reference lifecycle settings with empty credentials.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Retry: RetryConfig{
			MinAuthInterval:    3000 * time.Millisecond,
			DeferredRetryDelay: 30 * time.Second,
			MaxCycles:          3,
			ExchangeAttempts:   3,
			ExchangeBackoff:    500 * time.Millisecond,
			Scope:              RetryScopeExchange,
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "botauth",
		},
		Events: EventsConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
		SharedGate: SharedGateConfig{
			KeyPrefix: "botauth:gate:",
		},
	}
}

// Validate reports the first configuration problem, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	// Credentials
	if strings.TrimSpace(c.BotUsername) == "" {
		return invalid("botUsername is required")
	}
	if err := validateHost("sessionAuthHost", c.SessionAuthHost); err != nil {
		return err
	}
	if err := validateHost("keyAuthHost", c.KeyAuthHost); err != nil {
		return err
	}
	if c.CompleteProxyURL != "" {
		u, err := url.Parse(c.CompleteProxyURL)
		if err != nil || u.Host == "" {
			return invalid("completeProxyURL must be an absolute URL")
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return invalid("completeProxyURL must use http, https or socks5")
		}
	}

	// Retry
	if c.Retry.MinAuthInterval <= 0 {
		return invalid("Retry MinAuthInterval must be > 0")
	}
	if c.Retry.DeferredRetryDelay < 0 {
		return invalid("Retry DeferredRetryDelay must be >= 0")
	}
	if c.Retry.MaxCycles < 1 {
		return invalid("Retry MaxCycles must be >= 1")
	}
	if c.Retry.ExchangeAttempts < 1 {
		return invalid("Retry ExchangeAttempts must be >= 1")
	}
	if c.Retry.ExchangeBackoff < 0 {
		return invalid("Retry ExchangeBackoff must be >= 0")
	}
	if c.Retry.Scope != RetryScopeExchange && c.Retry.Scope != RetryScopeCycle {
		return invalid("Retry Scope must be 'exchange' or 'cycle'")
	}

	// HTTP
	if c.HTTP.Timeout < 0 {
		return invalid("HTTP Timeout must be >= 0")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return invalid("Events BufferSize must be > 0 when enabled")
	}

	// Shared gate
	if c.SharedGate.Enabled && c.SharedGate.KeyPrefix == "" {
		return invalid("SharedGate KeyPrefix must be set when enabled")
	}

	return nil
}

func validateHost(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return invalid(field + " is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return invalid(field + " must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(field + " must use http or https")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
