package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tsfaye/sims/core/notification"
)

var _ notification.Repository = (*DB)(nil)

func (db *DB) CreateAnnouncement(ctx context.Context, ann notification.Announcement) (notification.Announcement, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if ann.ID == uuid.Nil {
		ann.ID = uuid.New()
	}
	db.announcements[ann.ID] = &ann
	return ann, nil
}

func (db *DB) QueryAllAnnouncements(ctx context.Context) ([]notification.Announcement, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	anns := make([]notification.Announcement, 0, len(db.announcements))
	for _, ann := range db.announcements {
		anns = append(anns, *ann)
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].CreatedAt.After(anns[j].CreatedAt) })
	return anns, nil
}

func (db *DB) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	db.notifications[n.ID] = &n
	return n, nil
}

func (db *DB) QueryNotificationsByUser(ctx context.Context, userID, limit int) ([]notification.Notification, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var notifs []notification.Notification
	for _, n := range db.notifications {
		if n.UserID == userID {
			notifs = append(notifs, *n)
		}
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	if limit > 0 && len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	n, ok := db.notifications[id]
	if !ok {
		return notification.ErrNotFound
	}
	n.ReadAt = &at
	return nil
}
