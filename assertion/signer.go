package assertion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TTL is the lifetime of every assertion. The identity endpoints reject assertions
// valid for 300 seconds or more.
const TTL = 290 * time.Second

// Claims is the payload of a signed assertion.
type Claims struct {
	jwt.RegisteredClaims
}

// Assertion is a signed, single-use credential presented to an identity endpoint.
type Assertion struct {
	Token     string
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer creates assertions for one bot identity.
type Signer struct {
	subject string
	keys    KeyProvider
	newID   func() string
}

// NewSigner returns a signer producing assertions for subject, signed with keys.
func NewSigner(subject string, keys KeyProvider) (*Signer, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if keys == nil {
		return nil, fmt.Errorf("%w: nil key provider", ErrKeyRead)
	}
	return &Signer{
		subject: subject,
		keys:    keys,
		newID:   uuid.NewString,
	}, nil
}

// Subject returns the bot identity placed in the sub claim.
func (s *Signer) Subject() string {
	return s.subject
}

// Create signs a new assertion issued at now. Key read failures wrap [ErrKeyRead];
// malformed keys and signing failures wrap [ErrSigning].
func (s *Signer) Create(ctx context.Context, now time.Time) (Assertion, error) {
	key, err := s.keys.PrivateKey(ctx)
	if err != nil {
		return Assertion{}, err
	}

	// exp is second-granular on the wire; truncate so Assertion mirrors the token.
	issued := now.Truncate(time.Second)
	expires := issued.Add(TTL)
	id := s.newID()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.subject,
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        id,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS512, claims).SignedString(key)
	if err != nil {
		return Assertion{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	return Assertion{
		Token:     token,
		Subject:   s.subject,
		ID:        id,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}
