package store

import (
	"errors"
	"fmt"
)

// Services translate these into coded domain errors.
var (
	ErrNotFound      = errors.New("store: entity not found")
	ErrAlreadyExists = errors.New("store: entity already exists")
)

// ReplayError is returned by creates whose idempotency key was already used.
// ID identifies the entity the first request produced.
type ReplayError struct {
	ID string
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("store: idempotency key already used for %s", e.ID)
}
