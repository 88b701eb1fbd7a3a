package inmemdb

import (
	"context"

	"github.com/tsfaye/sims/core/subject"
)

var _ subject.Repository = (*DB)(nil)

func (db *DB) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, s := range db.subjects {
		if s.Code == sub.Code && s.GradeLevel == sub.GradeLevel {
			return subject.Subject{}, subject.ErrCodeExists
		}
	}

	db.subjectPK++
	sub.ID = db.subjectPK
	db.subjects[sub.ID] = &sub
	return sub, nil
}

func (db *DB) GetSubjectByID(ctx context.Context, id int) (subject.Subject, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if sub, ok := db.subjects[id]; ok {
		return *sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (db *DB) GetSubjectByNameAndGrade(ctx context.Context, name string, grade int) (subject.Subject, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for _, sub := range db.subjects {
		if sub.Name == name && sub.GradeLevel == grade {
			return *sub, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (db *DB) FilterSubjects(ctx context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var subs []subject.Subject
	for _, sub := range db.subjects {
		if matchSubject(sub, filter) {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func matchSubject(sub *subject.Subject, filter subject.QueryFilter) bool {
	if filter.Code != "" && sub.Code != filter.Code {
		return false
	}
	if filter.GradeLevel != 0 && sub.GradeLevel != filter.GradeLevel {
		return false
	}
	if filter.TeacherID != 0 && (sub.TeacherID == nil || *sub.TeacherID != filter.TeacherID) {
		return false
	}
	if filter.IsActive != nil && sub.IsActive != *filter.IsActive {
		return false
	}
	if filter.Unassigned && sub.TeacherID != nil {
		return false
	}
	return true
}

func (db *DB) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, ok := db.subjects[sub.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	db.subjects[sub.ID] = &sub
	return sub, nil
}

func (db *DB) DeactivateSubjects(ctx context.Context, code string, grade *int) (int, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	var count int
	for _, sub := range db.subjects {
		if sub.Code != code || !sub.IsActive {
			continue
		}
		if grade != nil && sub.GradeLevel != *grade {
			continue
		}
		sub.IsActive = false
		count++
	}
	return count, nil
}

// Transact runs fn against the same DB; there is no rollback in memory, so
// it is only suitable for tests where fn is not expected to fail midway.
func (db *DB) Transact(ctx context.Context, fn func(subject.Repository) error) error {
	return fn(db)
}

func (db *DB) CreateWaitlistEntry(ctx context.Context, e subject.WaitlistEntry) (subject.WaitlistEntry, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.waitlistPK++
	e.ID = db.waitlistPK
	db.waitlist[e.ID] = &e
	return e, nil
}

func (db *DB) QueryWaitlist(ctx context.Context, subjectID int) ([]subject.WaitlistEntry, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var entries []subject.WaitlistEntry
	for _, e := range db.waitlist {
		if e.SubjectID == subjectID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (db *DB) DeleteWaitlistEntry(ctx context.Context, subjectID, studentID int) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for id, e := range db.waitlist {
		if e.SubjectID == subjectID && e.StudentID == studentID {
			delete(db.waitlist, id)
			return nil
		}
	}
	return subject.ErrNotWaitlisted
}
