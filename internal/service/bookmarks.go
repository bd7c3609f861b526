package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// errBookmarksMoved aborts a repair whose profile changed after the scan.
var errBookmarksMoved = errors.New("bookmarks changed since scan")

// BookmarkReconciler repairs profile bookmark lists from the topics'
// bookmarker sets, which are authoritative. It closes the gap left when
// the second write of a bookmark toggle fails.
type BookmarkReconciler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewBookmarkReconciler creates a new reconciler.
func NewBookmarkReconciler(store *store.Store, logger *slog.Logger) *BookmarkReconciler {
	return &BookmarkReconciler{
		store:  store,
		logger: logger,
	}
}

// Run rebuilds every profile's bookmark list and returns how many
// profiles changed. Existing order is kept for bookmarks that survive;
// missing ones are appended in topic creation order.
func (r *BookmarkReconciler) Run(ctx context.Context) (int, error) {
	topics, err := r.store.AllTopics(ctx)
	if err != nil {
		return 0, err
	}
	slices.SortFunc(topics, func(a, b *domain.Topic) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	want := make(map[string][]string)
	for _, t := range topics {
		for _, uid := range t.BookmarkedBy {
			want[uid] = append(want[uid], t.ID)
		}
	}

	profiles, err := r.store.AllProfiles(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if bookmarksMatch(p.Bookmarks, want[p.ID]) {
			continue
		}
		if r.repair(ctx, p, want[p.ID]) {
			changed++
		}
	}

	if changed > 0 {
		r.logger.InfoContext(ctx, "bookmark projections repaired", "profiles", changed)
	}
	return changed, nil
}

// repair writes want over the profile unless the profile's bookmarks moved
// since snapshot was read. A moved profile is left for the next run.
func (r *BookmarkReconciler) repair(ctx context.Context, snapshot *domain.Profile, want []string) bool {
	_, err := r.store.MutateProfile(ctx, snapshot.ID, func(current *domain.Profile) error {
		if !slices.Equal(current.Bookmarks, snapshot.Bookmarks) {
			return errBookmarksMoved
		}
		current.Bookmarks = mergeBookmarks(current.Bookmarks, want)
		return nil
	})
	switch {
	case errors.Is(err, errBookmarksMoved):
		r.logger.DebugContext(ctx, "bookmark repair skipped, profile changed", "user_id", snapshot.ID)
		return false
	case err != nil:
		r.logger.WarnContext(ctx, "bookmark repair failed", "user_id", snapshot.ID, "error", err)
		return false
	}
	return true
}

// Start runs the reconciler now and then every interval until ctx is done.
func (r *BookmarkReconciler) Start(ctx context.Context, interval time.Duration) {
	run := func() {
		if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("bookmark reconciliation failed", "error", err)
		}
	}

	run()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}

// bookmarksMatch reports whether have and want hold the same topic IDs.
func bookmarksMatch(have, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	for _, id := range want {
		if !slices.Contains(have, id) {
			return false
		}
	}
	return true
}

// mergeBookmarks keeps have's order for IDs still wanted and appends the rest.
func mergeBookmarks(have, want []string) []string {
	out := make([]string, 0, len(want))
	for _, id := range have {
		if slices.Contains(want, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, id := range want {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
