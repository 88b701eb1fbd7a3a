// Package grade holds per-student, per-subject score records. This surface
// mostly reads them (reports, transcripts); the registrar may upsert rows.
package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("grade not found")

// Grade is one student's score card for one subject.
type Grade struct {
	ID              int       `json:"id" db:"id"`
	StudentID       int       `json:"student_id" db:"student_id"`
	SubjectID       int       `json:"subject_id" db:"subject_id"`
	QuizScore       *float64  `json:"quiz_score" db:"quiz_score"`
	MidScore        *float64  `json:"mid_score" db:"mid_score"`
	AssignmentScore *float64  `json:"assignment_score" db:"assignment_score"`
	FinalExamScore  *float64  `json:"final_exam_score" db:"final_exam_score"`
	Score           *float64  `json:"score" db:"score"` // total
	Remarks         string    `json:"remarks" db:"remarks"`
	GradedAt        time.Time `json:"graded_at" db:"graded_at"` // UTC
}

// Record is a Grade joined to its student and subject, as rendered on
// academic records, transcripts and the performance report.
type Record struct {
	Grade
	StudentName string `json:"student_name" db:"student_name"`
	SubjectCode string `json:"subject_code" db:"subject_code"`
}

type QueryFilter struct {
	StudentID  int        `query:"student_id"`
	SubjectID  int        `query:"subject_id"`
	GradedFrom *time.Time `query:"graded_from"`
	GradedTo   *time.Time `query:"graded_to"`
}

type Repository interface {
	// FilterRecords applies AND operation on available QueryFilter fields and
	// joins student name and subject code onto each row.
	FilterRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	UpsertGrade(ctx context.Context, g Grade) (Grade, error)
}

// UpsertGrade contains information needed to record or amend a score card.
type UpsertGrade struct {
	StudentID       int      `json:"student_id" validate:"required"`
	SubjectID       int      `json:"subject_id" validate:"required"`
	QuizScore       *float64 `json:"quiz_score" validate:"omitempty,min=0,max=100"`
	MidScore        *float64 `json:"mid_score" validate:"omitempty,min=0,max=100"`
	AssignmentScore *float64 `json:"assignment_score" validate:"omitempty,min=0,max=100"`
	FinalExamScore  *float64 `json:"final_exam_score" validate:"omitempty,min=0,max=100"`
	Remarks         string   `json:"remarks"`
}

// Total sums the set score components.
func (ug UpsertGrade) Total() *float64 {
	var total float64
	var any bool
	for _, s := range []*float64{ug.QuizScore, ug.MidScore, ug.AssignmentScore, ug.FinalExamScore} {
		if s != nil {
			total += *s
			any = true
		}
	}
	if !any {
		return nil
	}
	return &total
}
