package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/tsfaye/sims/core/notification"
)

func Test_announcementRow_unpack(t *testing.T) {
	row := announcementRow{
		Announcement: notification.Announcement{Title: "Hello"},
		TargetRoles:  pq.StringArray{"admin:", "teacher:"},
		CreatedBy:    sql.NullInt64{Int64: 42, Valid: true},
	}
	ann := row.unpack()
	assert.Equal(t, 42, ann.CreatedBy)
	assert.Equal(t, []string{"admin:", "teacher:"}, ann.TargetRoles)
}

func Test_announcementRow_unpack_nullAuthor(t *testing.T) {
	// created_by goes NULL once the author is deleted (ON DELETE SET NULL)
	row := announcementRow{
		Announcement: notification.Announcement{Title: "Orphaned"},
		CreatedBy:    sql.NullInt64{},
	}
	assert.Equal(t, 0, row.unpack().CreatedBy)
}
