package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core/subject"
)

// queryer is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx, so the
// repository can run both standalone and inside Transact.
type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type subjectRepository struct {
	db *sqlx.DB
	q  queryer
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db, q: db}
}

func trapSubjectNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return subject.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const subjectColumns = `id, code, name, description, grade_level, credit_hours, subject_type, teacher_id, is_active, created_at, updated_at`

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	q := `
	INSERT INTO subject (code, name, description, grade_level, credit_hours, subject_type, teacher_id, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`
	err := repo.q.QueryRowContext(ctx, q,
		sub.Code, sub.Name, sub.Description, sub.GradeLevel, sub.CreditHours, sub.SubjectType,
		sub.TeacherID, sub.IsActive, sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id int) (subject.Subject, error) {
	var sub subject.Subject
	q := `SELECT ` + subjectColumns + ` FROM subject WHERE id = $1`
	if err := repo.q.GetContext(ctx, &sub, q, id); err != nil {
		return subject.Subject{}, trapSubjectNoRowsErr(err, "getting subject by id")
	}
	return sub, nil
}

func (repo *subjectRepository) GetSubjectByNameAndGrade(ctx context.Context, name string, grade int) (subject.Subject, error) {
	var sub subject.Subject
	q := `SELECT ` + subjectColumns + ` FROM subject WHERE name = $1 AND grade_level = $2`
	if err := repo.q.GetContext(ctx, &sub, q, name, grade); err != nil {
		return subject.Subject{}, trapSubjectNoRowsErr(err, "getting subject by name and grade")
	}
	return sub, nil
}

func (repo *subjectRepository) FilterSubjects(ctx context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	q := `SELECT ` + subjectColumns + ` FROM subject WHERE 1=1`
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Code != "" {
		q += ` AND code = ` + arg(filter.Code)
	}
	if filter.GradeLevel != 0 {
		q += ` AND grade_level = ` + arg(filter.GradeLevel)
	}
	if filter.TeacherID != 0 {
		q += ` AND teacher_id = ` + arg(filter.TeacherID)
	}
	if filter.IsActive != nil {
		q += ` AND is_active = ` + arg(*filter.IsActive)
	}
	if filter.Unassigned {
		q += ` AND teacher_id IS NULL`
	}
	q += ` ORDER BY grade_level, name`

	var subs []subject.Subject
	if err := repo.q.SelectContext(ctx, &subs, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering subjects")
	}
	return subs, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	q := `
	UPDATE subject
	SET code = $2, name = $3, description = $4, grade_level = $5, credit_hours = $6,
	    subject_type = $7, teacher_id = $8, is_active = $9, updated_at = $10
	WHERE id = $1`
	res, err := repo.q.ExecContext(ctx, q,
		sub.ID, sub.Code, sub.Name, sub.Description, sub.GradeLevel, sub.CreditHours,
		sub.SubjectType, sub.TeacherID, sub.IsActive, sub.UpdatedAt,
	)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return sub, nil
}

func (repo *subjectRepository) DeactivateSubjects(ctx context.Context, code string, grade *int) (int, error) {
	q := `UPDATE subject SET is_active = false, updated_at = now() WHERE is_active = true AND code = $1`
	args := []interface{}{code}
	if grade != nil {
		q += ` AND grade_level = $2`
		args = append(args, *grade)
	}

	res, err := repo.q.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deactivating subjects")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deactivated subjects")
	}
	return int(n), nil
}

// Transact runs fn against a copy of the repository bound to one transaction.
func (repo *subjectRepository) Transact(ctx context.Context, fn func(subject.Repository) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	txRepo := &subjectRepository{db: repo.db, q: tx}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo *subjectRepository) CreateWaitlistEntry(ctx context.Context, e subject.WaitlistEntry) (subject.WaitlistEntry, error) {
	q := `
	INSERT INTO waitlist_entry (subject_id, student_id, position, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`
	err := repo.q.QueryRowContext(ctx, q, e.SubjectID, e.StudentID, e.Position, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return subject.WaitlistEntry{}, errors.Wrap(err, "inserting waitlist entry")
	}
	return e, nil
}

func (repo *subjectRepository) QueryWaitlist(ctx context.Context, subjectID int) ([]subject.WaitlistEntry, error) {
	var entries []subject.WaitlistEntry
	q := `SELECT id, subject_id, student_id, position, created_at FROM waitlist_entry WHERE subject_id = $1 ORDER BY position`
	if err := repo.q.SelectContext(ctx, &entries, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying waitlist")
	}
	return entries, nil
}

func (repo *subjectRepository) DeleteWaitlistEntry(ctx context.Context, subjectID, studentID int) error {
	q := `DELETE FROM waitlist_entry WHERE subject_id = $1 AND student_id = $2`
	res, err := repo.q.ExecContext(ctx, q, subjectID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting waitlist entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.ErrNotWaitlisted
	}
	return nil
}
