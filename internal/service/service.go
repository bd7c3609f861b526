// Package service implements the forum's operations on top of the store:
// topics, threaded replies, like and bookmark toggles, notification fan-out,
// profiles and moderation. Handlers pass the resolved caller profile (nil
// for anonymous reads) and receive coded domain errors.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/id"
	"github.com/wellspringapp/wellspring-server/internal/search"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// TopicIndex is the text index behind topic search.
// *search.Service implements it.
type TopicIndex interface {
	IndexTopic(ctx context.Context, topic *domain.Topic) error
	DeleteTopic(ctx context.Context, topicID string) error
	SearchTopics(ctx context.Context, q search.Query) ([]string, error)
}

// ListCache caches ordered topic ID lists. *cache.TopicLists implements it.
type ListCache interface {
	Get(ctx context.Context, variant string) (ids []string, gen int64, ok bool)
	Set(ctx context.Context, gen int64, variant string, ids []string)
	Invalidate(ctx context.Context)
}

// requireCaller rejects anonymous callers on mutating operations.
func requireCaller(caller *domain.Profile) error {
	if caller == nil || caller.ID == "" {
		return domainerrors.Unauthorized("authentication required")
	}
	return nil
}

// mapStoreError converts store and context failures into domain errors.
// Domain errors raised inside store guards pass through unchanged.
func mapStoreError(err error, what string) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", what)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflictf("%s already exists", what)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domainerrors.Timeout(err)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, fmt.Sprintf("%s: storage failure", what))
	}
}

// checkID treats malformed ids as missing entities.
func checkID(prefix, value, what string) error {
	if !id.Valid(prefix, value) {
		return domainerrors.NotFoundf("%s not found", what)
	}
	return nil
}
