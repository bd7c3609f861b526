package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// Notification storage key prefixes.
// Inbox keys embed an inverted timestamp so forward iteration is newest first.
const (
	notificationUserPrefix = "notification:user:" // {len(userID)}:{userID}:{inverted_ts}:{id} → JSON
	notificationIDPrefix   = "notification:id:"   // {id} → inbox key
	notificationMetaPrefix = "notification:meta:" // {userID} → inbox size
)

// invertedTimestamp returns a string that sorts in descending time order.
func invertedTimestamp(t time.Time) string {
	inverted := math.MaxInt64 - t.UnixNano()
	return fmt.Sprintf("%019d", inverted)
}

// inboxPrefix length-prefixes userID so no user's prefix covers another's,
// even when IDs contain ':'.
func inboxPrefix(userID string) string {
	return notificationUserPrefix + strconv.Itoa(len(userID)) + ":" + userID + ":"
}

func inboxKey(n *domain.Notification) []byte {
	return []byte(inboxPrefix(n.UserID) + invertedTimestamp(n.CreatedAt) + ":" + n.ID)
}

// notificationIDFromKey extracts the ID segment of an inbox key.
func notificationIDFromKey(key []byte) string {
	k := string(key)
	return k[strings.LastIndexByte(k, ':')+1:]
}

// AddNotification inserts n into its owner's inbox and trims the inbox to
// domain.MaxInboxSize in the same transaction, dropping the oldest entries.
// Returns the IDs of the dropped notifications.
//
// Every insert for a user reads and writes that user's meta key, so
// concurrent inserts conflict and retry instead of overfilling the inbox.
func (s *Store) AddNotification(ctx context.Context, n *domain.Notification) ([]string, error) {
	var dropped []string
	err := s.update(ctx, func(txn *badger.Txn) error {
		dropped = nil
		metaKey := []byte(notificationMetaPrefix + n.UserID)
		if _, err := txn.Get(metaKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to read inbox meta: %w", err)
		}

		keys, err := scanKeys(ctx, txn, []byte(inboxPrefix(n.UserID)))
		if err != nil {
			return err
		}

		key := inboxKey(n)
		if err := setJSON(txn, key, n); err != nil {
			return err
		}
		if err := txn.Set([]byte(notificationIDPrefix+n.ID), key); err != nil {
			return err
		}

		keys = append(keys, key)
		slices.SortFunc(keys, func(a, b []byte) int { return strings.Compare(string(a), string(b)) })
		if len(keys) > domain.MaxInboxSize {
			for _, old := range keys[domain.MaxInboxSize:] {
				id := notificationIDFromKey(old)
				if err := txn.Delete(old); err != nil {
					return err
				}
				if err := txn.Delete([]byte(notificationIDPrefix + id)); err != nil {
					return err
				}
				dropped = append(dropped, id)
			}
			keys = keys[:domain.MaxInboxSize]
		}

		return txn.Set(metaKey, []byte(strconv.Itoa(len(keys))))
	})
	if err != nil {
		return nil, err
	}
	return dropped, nil
}

// ListNotifications returns up to limit notifications for userID, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0)
	err := s.view(ctx, func(txn *badger.Txn) error {
		return eachNotification(ctx, txn, userID, func(n *domain.Notification) bool {
			if unreadOnly && n.Read {
				return true
			}
			out = append(out, n)
			return limit <= 0 || len(out) < limit
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountUnreadNotifications returns how many of userID's notifications are unread.
func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.view(ctx, func(txn *badger.Txn) error {
		return eachNotification(ctx, txn, userID, func(notif *domain.Notification) bool {
			if !notif.Read {
				n++
			}
			return true
		})
	})
	return n, err
}

// MarkNotificationRead sets the read flag on one of userID's notifications.
// Notifications owned by other users are reported as ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	var result *domain.Notification
	err := s.update(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(notificationIDPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(string(key), inboxPrefix(userID)) {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}

		var n domain.Notification
		if err := getJSON(txn, key, &n); err != nil {
			return fmt.Errorf("notification %s: %w", id, err)
		}
		if !n.Read {
			n.Read = true
			if err := setJSON(txn, key, &n); err != nil {
				return err
			}
		}
		result = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkAllNotificationsRead sets the read flag on every notification of
// userID and returns how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	var changed int
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = 0
		var unread []*domain.Notification
		err := eachNotification(ctx, txn, userID, func(n *domain.Notification) bool {
			if !n.Read {
				unread = append(unread, n)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, n := range unread {
			n.Read = true
			if err := setJSON(txn, inboxKey(n), n); err != nil {
				return err
			}
		}
		changed = len(unread)
		return nil
	})
	return changed, err
}

// eachNotification walks userID's inbox newest first until fn returns false.
func eachNotification(ctx context.Context, txn *badger.Txn, userID string, fn func(*domain.Notification) bool) error {
	prefix := []byte(inboxPrefix(userID))
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n domain.Notification
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		}); err != nil {
			return err
		}
		if !fn(&n) {
			return nil
		}
	}
	return nil
}
