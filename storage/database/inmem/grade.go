package inmemdb

import (
	"context"
	"sort"

	"github.com/tsfaye/sims/core/grade"
)

var _ grade.Repository = (*DB)(nil)

func (db *DB) FilterRecords(ctx context.Context, filter grade.QueryFilter) ([]grade.Record, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var records []grade.Record
	for _, g := range db.grades {
		if filter.StudentID != 0 && g.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectID != 0 && g.SubjectID != filter.SubjectID {
			continue
		}
		if filter.GradedFrom != nil && g.GradedAt.Before(*filter.GradedFrom) {
			continue
		}
		if filter.GradedTo != nil && g.GradedAt.After(*filter.GradedTo) {
			continue
		}

		rec := grade.Record{Grade: *g}
		if usr, ok := db.users[g.StudentID]; ok {
			rec.StudentName = usr.Name
		}
		if sub, ok := db.subjects[g.SubjectID]; ok {
			rec.SubjectCode = sub.Code
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].StudentName != records[j].StudentName {
			return records[i].StudentName < records[j].StudentName
		}
		return records[i].SubjectCode < records[j].SubjectCode
	})
	return records, nil
}

func (db *DB) UpsertGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, existing := range db.grades {
		if existing.StudentID == g.StudentID && existing.SubjectID == g.SubjectID {
			g.ID = existing.ID
			db.grades[g.ID] = &g
			return g, nil
		}
	}

	db.gradePK++
	g.ID = db.gradePK
	db.grades[g.ID] = &g
	return g, nil
}
