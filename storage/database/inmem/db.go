// Package inmemdb is an in-memory implementation of every repository,
// used as a test double and for quick local runs without Postgres.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tsfaye/sims/core/finance"
	"github.com/tsfaye/sims/core/grade"
	"github.com/tsfaye/sims/core/notification"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users         map[int]*user.User
	subjects      map[int]*subject.Subject
	grades        map[int]*grade.Grade
	announcements map[uuid.UUID]*notification.Announcement
	notifications map[uuid.UUID]*notification.Notification
	waitlist      map[int]*subject.WaitlistEntry
	payments      map[int]*finance.Payment

	userPK     int
	subjectPK  int
	gradePK    int
	waitlistPK int
	paymentPK  int
}

func Open() (*DB, error) {
	return &DB{
		users:         make(map[int]*user.User),
		subjects:      make(map[int]*subject.Subject),
		grades:        make(map[int]*grade.Grade),
		announcements: make(map[uuid.UUID]*notification.Announcement),
		notifications: make(map[uuid.UUID]*notification.Notification),
		waitlist:      make(map[int]*subject.WaitlistEntry),
		payments:      make(map[int]*finance.Payment),
	}, nil
}
