package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

// announcementRow mirrors the announcement table; TargetRoles is TEXT[] and
// CreatedBy is NULL once the author is deleted (FK is ON DELETE SET NULL).
type announcementRow struct {
	notification.Announcement
	TargetRoles pq.StringArray `db:"target_roles"`
	CreatedBy   sql.NullInt64  `db:"created_by"`
}

func (r announcementRow) unpack() notification.Announcement {
	ann := r.Announcement
	ann.TargetRoles = []string(r.TargetRoles)
	ann.CreatedBy = int(r.CreatedBy.Int64)
	return ann
}

func (repo notificationRepository) CreateAnnouncement(ctx context.Context, ann notification.Announcement) (notification.Announcement, error) {
	if ann.ID == uuid.Nil {
		ann.ID = uuid.New()
	}
	createdBy := sql.NullInt64{Int64: int64(ann.CreatedBy), Valid: ann.CreatedBy != 0}
	q := `
	INSERT INTO announcement (id, title, content, created_by, target_roles, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q,
		ann.ID, ann.Title, ann.Content, createdBy, pq.Array(ann.TargetRoles), ann.CreatedAt,
	)
	if err != nil {
		return notification.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo notificationRepository) QueryAllAnnouncements(ctx context.Context) ([]notification.Announcement, error) {
	var rows []announcementRow
	q := `SELECT id, title, content, created_by, target_roles, created_at FROM announcement ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}

	anns := make([]notification.Announcement, 0, len(rows))
	for _, r := range rows {
		anns = append(anns, r.unpack())
	}
	return anns, nil
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	q := `
	INSERT INTO notification (id, user_id, title, message, link, created_at, read_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, n.ID, n.UserID, n.Title, n.Message, n.Link, n.CreatedAt, n.ReadAt)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) QueryNotificationsByUser(ctx context.Context, userID, limit int) ([]notification.Notification, error) {
	q := `SELECT id, user_id, title, message, link, created_at, read_at FROM notification WHERE user_id = $1 ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	var notifs []notification.Notification
	if err := repo.db.SelectContext(ctx, &notifs, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo notificationRepository) MarkNotificationRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notification SET read_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
