package botauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/botauth/assertion"
	"github.com/golang-jwt/jwt/v5"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func sharedTestKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func encodeTestKey(t *testing.T) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(sharedTestKey(t)),
	})
}

// countingKeys serves a fixed key and counts how often it was asked for.
type countingKeys struct {
	key   *rsa.PrivateKey
	calls atomic.Int32
}

func (c *countingKeys) PrivateKey(context.Context) (*rsa.PrivateKey, error) {
	c.calls.Add(1)
	return c.key, nil
}

// fakeClock drives both the authenticator's clock and its sleeps. Sleeping
// advances the clock by the requested duration without blocking.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	hook := c.onSleep
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

type scriptedResponse struct {
	status int
	token  string
}

// scriptedEndpoint answers calls in order; the last response repeats.
type scriptedEndpoint struct {
	mu         sync.Mutex
	responses  []scriptedResponse
	assertions []string
	block      chan struct{}
	entered    chan struct{}
}

func (e *scriptedEndpoint) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(raw, &body)

	e.mu.Lock()
	idx := len(e.assertions)
	e.assertions = append(e.assertions, body.Token)
	resp := scriptedResponse{status: http.StatusOK, token: "unset"}
	if len(e.responses) > 0 {
		if idx >= len(e.responses) {
			idx = len(e.responses) - 1
		}
		resp = e.responses[idx]
	}
	block, entered := e.block, e.entered
	e.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	if resp.status == http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": resp.token, "name": "ignored"})
		return
	}
	_, _ = w.Write([]byte(`{"message":"denied"}`))
}

func (e *scriptedEndpoint) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.assertions)
}

func (e *scriptedEndpoint) Assertions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.assertions))
	copy(out, e.assertions)
	return out
}

type identityServer struct {
	*httptest.Server
	session    *scriptedEndpoint
	keyManager *scriptedEndpoint
}

func newIdentityServer(t *testing.T, session, keyManager []scriptedResponse) *identityServer {
	t.Helper()

	s := &identityServer{
		session:    &scriptedEndpoint{responses: session},
		keyManager: &scriptedEndpoint{responses: keyManager},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/pubkey/authenticate", s.session.serve)
	mux.HandleFunc("/relay/pubkey/authenticate", s.keyManager.serve)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func okResp(token string) scriptedResponse {
	return scriptedResponse{status: http.StatusOK, token: token}
}

func statusResp(code int) scriptedResponse { return scriptedResponse{status: code} }

func testConfig(srv *identityServer) Config {
	cfg := DefaultConfig()
	cfg.BotUsername = "test-bot"
	cfg.SessionAuthHost = srv.URL
	cfg.KeyAuthHost = srv.URL
	return cfg
}

type testHarness struct {
	auth  *Authenticator
	srv   *identityServer
	clock *fakeClock
	keys  *countingKeys
}

func newTestHarness(t *testing.T, session, keyManager []scriptedResponse, mutate func(*Config, *Builder)) *testHarness {
	t.Helper()

	srv := newIdentityServer(t, session, keyManager)
	keys := &countingKeys{key: sharedTestKey(t)}
	cfg := testConfig(srv)

	b := New()
	if mutate != nil {
		mutate(&cfg, b)
	}
	auth, err := b.WithConfig(cfg).WithKeyProvider(keys).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(auth.Close)

	clock := newFakeClock()
	auth.now = clock.Now
	auth.sleep = clock.Sleep

	return &testHarness{auth: auth, srv: srv, clock: clock, keys: keys}
}

func parseTestAssertion(t *testing.T, token string) *assertion.Claims {
	t.Helper()

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &assertion.Claims{}, func(*jwt.Token) (interface{}, error) {
		return &sharedTestKey(t).PublicKey, nil
	})
	if err != nil {
		t.Fatalf("parse assertion: %v", err)
	}
	return parsed.Claims.(*assertion.Claims)
}
