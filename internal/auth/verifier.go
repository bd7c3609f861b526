package auth

import (
	"context"
	"errors"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}
