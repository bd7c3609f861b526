package service

import (
	"github.com/google/uuid"

	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// idempotencyFor builds the store idempotency scope for a client key.
// Keys must be UUIDs; an empty key disables replay protection.
func idempotencyFor(scope, callerID, key string) (store.Idempotency, error) {
	if key == "" {
		return store.Idempotency{}, nil
	}
	parsed, err := uuid.Parse(key)
	if err != nil {
		return store.Idempotency{}, domainerrors.ValidationWithDetails("invalid idempotency key",
			map[string]string{"Idempotency-Key": "must be a valid UUID"})
	}
	return store.Idempotency{
		Scope:    scope,
		CallerID: callerID,
		Key:      parsed.String(),
	}, nil
}
