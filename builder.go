package botauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/botauth/assertion"
	"github.com/MrEthical07/botauth/internal/exchange"
	"github.com/MrEthical07/botauth/internal/gate"
	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Authenticator]. A Builder is single use.
type Builder struct {
	config Config

	httpClient  *resty.Client
	keyProvider assertion.KeyProvider
	logger      *zap.Logger
	redis       redis.UniversalClient
	eventSink   EventSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithHTTPClient injects the transport used for both exchanges. Proxy and trust
// store settings in Config are then ignored.
func (b *Builder) WithHTTPClient(client *resty.Client) *Builder {
	b.httpClient = client
	return b
}

// WithKeyProvider replaces the default file reader for the private key.
func (b *Builder) WithKeyProvider(p assertion.KeyProvider) *Builder {
	b.keyProvider = p
	return b
}

// WithLogger sets the structured logger. The default discards all output.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithRedis supplies the client backing the shared gate.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEventSink sets the destination for auth events. Events must also be
// enabled in Config.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the authenticator.
func (b *Builder) Build() (*Authenticator, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("bot", cfg.BotUsername))

	keys := b.keyProvider
	if keys == nil {
		if strings.TrimSpace(cfg.BotRSAPath) == "" {
			return nil, invalid("botRSAPath is required without a key provider")
		}
		keys = assertion.NewFileKeyProvider(cfg.BotRSAPath)
	}
	signer, err := assertion.NewSigner(cfg.BotUsername, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	httpClient := b.httpClient
	if httpClient == nil {
		if cfg.TruststorePath != "" {
			logger.Debug("setting truststore for auth", zap.String("path", cfg.TruststorePath))
		}
		if cfg.CompleteProxyURL != "" {
			logger.Debug("routing auth traffic through proxy")
		}
		httpClient, err = NewHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	var shared *gate.Redis
	if cfg.SharedGate.Enabled {
		if b.redis == nil {
			return nil, invalid("SharedGate requires a redis client")
		}
		shared = gate.NewRedis(b.redis, cfg.SharedGate.KeyPrefix, cfg.Retry.MinAuthInterval)
	}

	lifetime, cancelLifetime := context.WithCancel(context.Background())
	a := &Authenticator{
		config:   cfg,
		signer:   signer,
		exchange: exchange.New(httpClient),
		gate:     gate.NewLocal(cfg.Retry.MinAuthInterval),
		shared:   shared,
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		events:   newEventDispatcher(cfg.Events, b.eventSink),
		now:      timeNow,
		sleep:    sleepContext,

		lifetime:       lifetime,
		cancelLifetime: cancelLifetime,
	}

	b.built = true
	return a, nil
}

// NewHTTPClient builds the default transport from cfg: proxying through
// CompleteProxyURL and trusting TruststorePath when they are set.
func NewHTTPClient(cfg Config) (*resty.Client, error) {
	client, err := exchange.NewTransport(exchange.TransportOptions{
		ProxyURL:       cfg.CompleteProxyURL,
		TruststorePath: cfg.TruststorePath,
		Timeout:        cfg.HTTP.Timeout,
		UserAgent:      cfg.HTTP.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return client, nil
}
