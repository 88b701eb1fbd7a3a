package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/tsfaye/sims/core"
)

// Announcement is a broadcast message targeted at one or more roles.
// It is immutable once created; an empty TargetRoles means "all users".
type Announcement struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Content     string    `json:"content" db:"content"`
	CreatedBy   int       `json:"created_by" db:"created_by"`
	TargetRoles []string  `json:"target_roles" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// Notification is a per-user in-app message record.
type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Title     string     `json:"title" db:"title"`
	Message   string     `json:"message" db:"message"`
	Link      string     `json:"link" db:"link"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"` // UTC
	ReadAt    *time.Time `json:"read_at" db:"read_at"`
}

// NewAnnouncement contains information needed to post an Announcement.
type NewAnnouncement struct {
	Title       string   `json:"title" validate:"required"`
	Content     string   `json:"content" validate:"required"`
	TargetRoles []string `json:"target_roles" validate:"omitempty,allroles"`
}

func (na *NewAnnouncement) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	return core.Validate.Struct(na)
}
