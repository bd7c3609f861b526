package auth

import (
	"context"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/id"
)

const (
	tokenIssuer   = "wellspring-server"
	tokenAudience = "wellspring-client"
)

// Profile claims carried next to the registered ones. v4.local tokens are
// encrypted, so these are opaque to clients.
var profileClaims = [...]string{"email", "name", "picture"}

// TokenService issues and verifies v4.local PASETO tokens under one
// symmetric key. It backs AUTH_PROVIDER=paseto and the token CLI.
type TokenService struct {
	key paseto.V4SymmetricKey
}

// NewTokenService builds a TokenService from a raw 32-byte key.
func NewTokenService(key []byte) (*TokenService, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("token key is %d bytes, want %d", len(key), keySize)
	}
	sk, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("token key: %w", err)
	}
	return &TokenService{key: sk}, nil
}

// IssueToken returns a token for identity expiring after ttl.
func (s *TokenService) IssueToken(identity domain.Identity, ttl time.Duration) (string, error) {
	jti, err := id.Generate("token")
	if err != nil {
		return "", err
	}

	now := time.Now()
	t := paseto.NewToken()
	t.SetIssuer(tokenIssuer)
	t.SetAudience(tokenAudience)
	t.SetSubject(identity.ID)
	t.SetJti(jti)
	t.SetIssuedAt(now)
	t.SetNotBefore(now)
	t.SetExpiration(now.Add(ttl))

	values := [...]string{identity.Email, identity.Name, identity.Picture}
	for i, claim := range profileClaims {
		t.SetString(claim, values[i])
	}
	return t.V4Encrypt(s.key, nil), nil
}

// Verify decrypts raw and checks issuer, audience and validity window.
func (s *TokenService) Verify(_ context.Context, raw string) (domain.Identity, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.IssuedBy(tokenIssuer), paseto.ForAudience(tokenAudience), paseto.ValidAt(time.Now()))

	t, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := t.GetSubject()
	if err != nil || sub == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	var values [len(profileClaims)]string
	for i, claim := range profileClaims {
		// Absent claims stay empty.
		values[i], _ = t.GetString(claim)
	}
	return domain.Identity{ID: sub, Email: values[0], Name: values[1], Picture: values[2]}, nil
}
