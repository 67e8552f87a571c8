package botauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/botauth/assertion"
	"github.com/MrEthical07/botauth/internal/exchange"
	"github.com/MrEthical07/botauth/internal/gate"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Authenticator obtains and holds the session and key-manager tokens of one bot.
//
// Authenticate is safe to call from multiple goroutines: concurrent callers share
// the cycle in flight. Token accessors never block on a running cycle.
type Authenticator struct {
	config   Config
	signer   *assertion.Signer
	exchange *exchange.Client
	gate     *gate.Local
	shared   *gate.Redis
	logger   *zap.Logger
	metrics  *Metrics
	events   *eventDispatcher
	flight   singleflight.Group

	// lifetime bounds shared cycles; Close cancels it.
	lifetime       context.Context
	cancelLifetime context.CancelFunc

	mu              sync.RWMutex
	sessionToken    string
	hasSession      bool
	keyManagerToken string
	hasKeyManager   bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	closed atomic.Bool
}

// AuthResult summarizes one Authenticate call.
type AuthResult struct {
	// Cycles is the number of authentication cycles initiated.
	Cycles int
	// GatedWaits is the number of times the caller was parked by the rate gate.
	GatedWaits int
	// Assertions is the number of signed assertions created.
	Assertions          int
	SessionRefreshed    bool
	KeyManagerRefreshed bool
	// LastAuthMillis is the gate timestamp when the call returned.
	LastAuthMillis int64
}

func timeNow() time.Time { return time.Now() }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionToken returns the session token and whether one has been obtained.
func (a *Authenticator) SessionToken() (string, bool) {
	if a == nil {
		return "", false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionToken, a.hasSession
}

// KeyManagerToken returns the key-manager token and whether one has been obtained.
func (a *Authenticator) KeyManagerToken() (string, bool) {
	if a == nil {
		return "", false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.keyManagerToken, a.hasKeyManager
}

// LastAuthMillis returns the Unix-millisecond time the latest cycle was initiated,
// or 0 before the first one. It never decreases.
func (a *Authenticator) LastAuthMillis() int64 {
	if a == nil {
		return 0
	}
	return a.gate.LastMillis()
}

// Config returns the configuration the authenticator was built with.
func (a *Authenticator) Config() Config {
	if a == nil {
		return Config{}
	}
	return a.config
}

// MetricsSnapshot returns the current counters. Empty when metrics are disabled.
func (a *Authenticator) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

// EventsDropped returns how many auth events were dropped on a full buffer.
func (a *Authenticator) EventsDropped() uint64 {
	if a == nil {
		return 0
	}
	return a.events.Dropped()
}

// Close flushes pending auth events. Authenticate fails after Close; tokens
// stay readable.
func (a *Authenticator) Close() {
	if a == nil {
		return
	}
	a.closed.Store(true)
	if a.cancelLifetime != nil {
		a.cancelLifetime()
	}
	a.events.Close()
}

// CreateSignedAssertion signs a fresh assertion for the bot, valid for
// [assertion.TTL]. The key is obtained from the key provider on every call.
func (a *Authenticator) CreateSignedAssertion(ctx context.Context) (assertion.Assertion, error) {
	signed, err := a.signer.Create(ctx, a.now())
	if err != nil {
		a.metrics.Inc(MetricAssertionFailure)
		a.logger.Error("signed assertion creation failed", zap.Error(err))
		return assertion.Assertion{}, err
	}
	a.metrics.Inc(MetricAssertionCreated)
	return signed, nil
}

// Authenticate runs an authentication cycle if the rate gate allows it.
//
// When a cycle was initiated less than Retry.MinAuthInterval ago, the caller is
// parked for Retry.DeferredRetryDelay and the gate is checked again. Gate passes
// are bounded by Retry.MaxCycles; running out of them, or of exchange attempts,
// returns an error wrapping [ErrRetriesExhausted] and the last failure. Key read
// and signing failures are returned immediately.
//
// A caller joining a cycle already in flight waits for its outcome; ctx only
// bounds that caller's wait. The shared cycle keeps ctx's values but not its
// cancellation, and stops early only on Close.
func (a *Authenticator) Authenticate(ctx context.Context) (*AuthResult, error) {
	if a == nil || a.closed.Load() {
		return nil, ErrAuthenticatorNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ch := a.flight.DoChan("authenticate", func() (interface{}, error) {
		cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		if a.lifetime != nil {
			stop := context.AfterFunc(a.lifetime, cancel)
			defer stop()
		}
		return a.authenticate(cycleCtx)
	})

	select {
	case res := <-ch:
		var out *AuthResult
		if r, ok := res.Val.(*AuthResult); ok && r != nil {
			cp := *r
			out = &cp
		}
		return out, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Authenticator) authenticate(ctx context.Context) (*AuthResult, error) {
	a.logger.Debug("authenticate called")

	res := &AuthResult{}
	defer func() { res.LastAuthMillis = a.gate.LastMillis() }()

	var lastErr error
	maxPasses := a.config.Retry.MaxCycles
	for pass := 1; pass <= maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !a.acquire(ctx, a.now()) {
			if pass == maxPasses {
				break
			}
			res.GatedWaits++
			a.metrics.Inc(MetricDeferredRetry)
			a.logger.Debug("retry authentication after delay",
				zap.Duration("delay", a.config.Retry.DeferredRetryDelay),
				zap.Int("pass", pass),
			)
			a.emit(ctx, AuthEvent{EventType: EventRateGated, Cycle: pass})
			if err := a.sleep(ctx, a.config.Retry.DeferredRetryDelay); err != nil {
				return res, err
			}
			continue
		}

		res.Cycles++
		err := a.runCycle(ctx, res, pass)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !isExchangeFailure(err) || ctx.Err() != nil {
			return res, err
		}
		if a.config.Retry.Scope == RetryScopeExchange {
			return res, a.exhausted(ctx, pass, err)
		}
	}

	return res, a.exhausted(ctx, maxPasses, lastErr)
}

// acquire reports whether a new cycle may start at now and, if so, records it.
func (a *Authenticator) acquire(ctx context.Context, now time.Time) bool {
	if a.gate.Fresh(now) {
		a.metrics.Inc(MetricRateGated)
		return false
	}

	if a.shared != nil {
		ok, err := a.shared.Acquire(ctx, a.signer.Subject(), now)
		switch {
		case err != nil:
			a.metrics.Inc(MetricSharedGateError)
			a.logger.Warn("shared gate unavailable, using local gate only", zap.Error(err))
		case !ok:
			a.metrics.Inc(MetricSharedGateDenied)
			a.metrics.Inc(MetricRateGated)
			return false
		}
	}

	a.gate.Mark(now)
	return true
}

func (a *Authenticator) runCycle(ctx context.Context, res *AuthResult, cycle int) error {
	a.metrics.Inc(MetricCycleStarted)
	a.logger.Debug("authentication needed", zap.Int("cycle", cycle))
	a.emit(ctx, AuthEvent{EventType: EventCycleStarted, Cycle: cycle})

	// A rejected session exchange does not skip the key-manager exchange.
	sessionErr := a.sessionAuthenticate(ctx, res, cycle)
	if sessionErr != nil && (!isExchangeFailure(sessionErr) || ctx.Err() != nil) {
		a.cycleFailed(ctx, cycle, sessionErr)
		return sessionErr
	}
	keyManagerErr := a.keyManagerAuthenticate(ctx, res, cycle)
	if err := errors.Join(sessionErr, keyManagerErr); err != nil {
		a.cycleFailed(ctx, cycle, err)
		return err
	}

	a.metrics.Inc(MetricCycleSuccess)
	a.emit(ctx, AuthEvent{EventType: EventCycleCompleted, Cycle: cycle, Success: true})
	return nil
}

func (a *Authenticator) cycleFailed(ctx context.Context, cycle int, err error) {
	a.metrics.Inc(MetricCycleFailure)
	a.emit(ctx, AuthEvent{EventType: EventCycleCompleted, Cycle: cycle, Error: err.Error()})
}

func (a *Authenticator) sessionAuthenticate(ctx context.Context, res *AuthResult, cycle int) error {
	token, err := a.exchangeToken(ctx, res, cycle, exchange.Session, a.config.SessionAuthHost)
	if err != nil {
		a.metrics.Inc(MetricSessionExchangeFailure)
		return err
	}

	a.mu.Lock()
	a.sessionToken = token
	a.hasSession = true
	a.mu.Unlock()

	res.SessionRefreshed = true
	a.metrics.Inc(MetricSessionExchangeSuccess)
	return nil
}

func (a *Authenticator) keyManagerAuthenticate(ctx context.Context, res *AuthResult, cycle int) error {
	token, err := a.exchangeToken(ctx, res, cycle, exchange.KeyManager, a.config.KeyAuthHost)
	if err != nil {
		a.metrics.Inc(MetricKeyManagerExchangeFailure)
		return err
	}

	a.mu.Lock()
	a.keyManagerToken = token
	a.hasKeyManager = true
	a.mu.Unlock()

	res.KeyManagerRefreshed = true
	a.metrics.Inc(MetricKeyManagerExchangeSuccess)
	return nil
}

// exchangeToken trades fresh assertions for a token at ep. Under
// RetryScopeExchange a failed exchange is retried with exponential backoff;
// under RetryScopeCycle a single attempt is made.
func (a *Authenticator) exchangeToken(ctx context.Context, res *AuthResult, cycle int, ep exchange.Endpoint, host string) (string, error) {
	attempts := 1
	if a.config.Retry.Scope == RetryScopeExchange {
		attempts = a.config.Retry.ExchangeAttempts
	}
	backoff := a.config.Retry.ExchangeBackoff
	maxBackoff := max(a.config.Retry.DeferredRetryDelay, backoff)
	log := a.logger.With(zap.String("endpoint", ep.Name), zap.Int("cycle", cycle))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := a.sleep(ctx, backoff); err != nil {
				return "", err
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		signed, err := a.CreateSignedAssertion(ctx)
		if err != nil {
			return "", err
		}
		res.Assertions++

		start := time.Now()
		token, err := a.exchange.Exchange(ctx, host, ep, signed.Token)
		a.metrics.Observe(MetricExchangeLatency, time.Since(start))
		if err == nil {
			log.Debug("token exchange succeeded", zap.Int("attempt", attempt))
			a.emit(ctx, AuthEvent{EventType: EventExchange, Endpoint: ep.Name, Cycle: cycle, Attempt: attempt, Success: true})
			return token, nil
		}
		lastErr = err

		event := AuthEvent{EventType: EventExchange, Endpoint: ep.Name, Cycle: cycle, Attempt: attempt, Error: err.Error()}
		fields := []zap.Field{zap.Int("attempt", attempt), zap.Error(err)}
		var se *exchange.StatusError
		if errors.As(err, &se) {
			event.StatusCode = se.StatusCode
			fields = append(fields, zap.Int("status", se.StatusCode))
		}
		log.Warn("token exchange failed", fields...)
		a.emit(ctx, event)

		if ctx.Err() != nil {
			return "", err
		}
	}

	if attempts > 1 {
		return "", fmt.Errorf("%w: %s exchange failed after %d attempts: %w", ErrRetriesExhausted, ep.Name, attempts, lastErr)
	}
	return "", lastErr
}

func (a *Authenticator) exhausted(ctx context.Context, passes int, cause error) error {
	a.metrics.Inc(MetricRetriesExhausted)

	err := fmt.Errorf("%w after %d passes", ErrRetriesExhausted, passes)
	if cause != nil {
		if errors.Is(cause, ErrRetriesExhausted) {
			err = cause
		} else {
			err = fmt.Errorf("%w after %d passes: %w", ErrRetriesExhausted, passes, cause)
		}
	}

	a.logger.Error("authentication gave up", zap.Int("passes", passes), zap.Error(err))
	a.emit(ctx, AuthEvent{
		EventType: EventRetriesExhausted,
		Error:     err.Error(),
		Metadata:  map[string]string{"passes": strconv.Itoa(passes)},
	})
	return err
}

func (a *Authenticator) emit(ctx context.Context, event AuthEvent) {
	if a.events == nil {
		return
	}
	event.Timestamp = a.now()
	event.Bot = a.signer.Subject()
	a.events.Emit(ctx, event)
}

// nextBackoff doubles cur without exceeding limit.
func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur > limit/2 {
		return limit
	}
	return cur * 2
}

func isExchangeFailure(err error) bool {
	return errors.Is(err, ErrExchangeRejected) ||
		errors.Is(err, ErrExchangeResponse) ||
		errors.Is(err, ErrNetwork)
}
