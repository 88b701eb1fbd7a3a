package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core/grade"
)

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) FilterRecords(ctx context.Context, filter grade.QueryFilter) ([]grade.Record, error) {
	q := `
	SELECT g.id, g.student_id, g.subject_id, g.quiz_score, g.mid_score, g.assignment_score,
	       g.final_exam_score, g.score, g.remarks, g.graded_at,
	       u.name AS student_name, s.code AS subject_code
	FROM grade g
	JOIN "user" u ON u.id = g.student_id
	JOIN subject s ON s.id = g.subject_id
	WHERE 1=1`
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.StudentID != 0 {
		q += ` AND g.student_id = ` + arg(filter.StudentID)
	}
	if filter.SubjectID != 0 {
		q += ` AND g.subject_id = ` + arg(filter.SubjectID)
	}
	if filter.GradedFrom != nil {
		q += ` AND g.graded_at >= ` + arg(*filter.GradedFrom)
	}
	if filter.GradedTo != nil {
		q += ` AND g.graded_at <= ` + arg(*filter.GradedTo)
	}
	q += ` ORDER BY u.name, s.code`

	var records []grade.Record
	if err := repo.db.SelectContext(ctx, &records, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering grade records")
	}
	return records, nil
}

func (repo gradeRepository) UpsertGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	q := `
	INSERT INTO grade (student_id, subject_id, quiz_score, mid_score, assignment_score, final_exam_score, score, remarks, graded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (student_id, subject_id) DO UPDATE
	SET quiz_score = EXCLUDED.quiz_score, mid_score = EXCLUDED.mid_score,
	    assignment_score = EXCLUDED.assignment_score, final_exam_score = EXCLUDED.final_exam_score,
	    score = EXCLUDED.score, remarks = EXCLUDED.remarks, graded_at = EXCLUDED.graded_at
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		g.StudentID, g.SubjectID, g.QuizScore, g.MidScore, g.AssignmentScore,
		g.FinalExamScore, g.Score, g.Remarks, g.GradedAt,
	).Scan(&g.ID)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return g, nil
}
