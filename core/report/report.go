// Package report assembles tabular exports (user breakdown, student
// performance, fee collection) and renders them to CSV, HTML, PDF or XLSX.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/finance"
	"github.com/tsfaye/sims/core/grade"
	"github.com/tsfaye/sims/core/user"
)

// Report types
const (
	TypeUserBreakdown      = "user_breakdown"
	TypeStudentPerformance = "student_performance"
	TypeFeeCollection      = "fee_collection"
	TypeAllReports         = "all_reports"
)

// Types lists the implemented report types, for pickers.
var Types = []string{TypeUserBreakdown, TypeStudentPerformance, TypeFeeCollection, TypeAllReports}

// Request identifies one report to build. Format is chosen by the caller and
// never overridden (the old behavior of forcing PDF is gone).
type Request struct {
	Type     string     `query:"type" validate:"required"`
	Format   string     `query:"format"`
	DateFrom *time.Time `query:"date_from"`
	DateTo   *time.Time `query:"date_to"`
}

func (r *Request) Validate() error {
	r.Type = core.CleanString(r.Type, true /* lower */)
	r.Format = core.CleanString(r.Format, true /* lower */)
	if r.Format == "" {
		r.Format = FormatCSV
	}
	return core.Validate.Struct(r)
}

// Section is one titled table within a document.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Document is a fully assembled report, ready for any renderer.
type Document struct {
	Title    string
	Filename string // without extension
	Sections []Section
}

type Builder struct {
	users    user.Repository
	grades   grade.Repository
	payments finance.Repository
}

func NewBuilder(users user.Repository, grades grade.Repository, payments finance.Repository) *Builder {
	return &Builder{users: users, grades: grades, payments: payments}
}

// Build assembles the document for the request. An unknown report type yields
// a well-formed notice document, not an error: the caller still gets a
// downloadable artifact saying the type is not implemented.
func (b *Builder) Build(ctx context.Context, req Request) (Document, error) {
	switch req.Type {
	case TypeUserBreakdown:
		sec, err := b.userBreakdown(ctx)
		if err != nil {
			return Document{}, err
		}
		return Document{Title: "User Role Breakdown", Filename: TypeUserBreakdown, Sections: []Section{sec}}, nil

	case TypeStudentPerformance:
		sec, err := b.studentPerformance(ctx, req.DateFrom, req.DateTo)
		if err != nil {
			return Document{}, err
		}
		return Document{Title: "Student Performance", Filename: TypeStudentPerformance, Sections: []Section{sec}}, nil

	case TypeFeeCollection:
		sec, err := b.feeCollection(ctx, req.DateFrom, req.DateTo)
		if err != nil {
			return Document{}, err
		}
		return Document{Title: "Fee Collection Summary", Filename: TypeFeeCollection, Sections: []Section{sec}}, nil

	case TypeAllReports:
		var sections []Section
		for _, build := range []func() (Section, error){
			func() (Section, error) { return b.userBreakdown(ctx) },
			func() (Section, error) { return b.studentPerformance(ctx, req.DateFrom, req.DateTo) },
			func() (Section, error) { return b.feeCollection(ctx, req.DateFrom, req.DateTo) },
		} {
			sec, err := build()
			if err != nil {
				return Document{}, err
			}
			sections = append(sections, sec)
		}
		return Document{Title: "All Reports", Filename: TypeAllReports, Sections: sections}, nil

	default:
		return NotImplemented(req.Type), nil
	}
}

// NotImplemented is the notice document emitted for unknown report types.
func NotImplemented(reportType string) Document {
	name := reportType
	if name == "" {
		name = "unknown"
	}
	return Document{
		Title:    "Report Not Implemented",
		Filename: "report_" + name,
		Sections: []Section{{
			Title:   "Notice",
			Headers: []string{"Message"},
			Rows:    [][]string{{fmt.Sprintf("Report type %q is not implemented yet.", reportType)}},
		}},
	}
}

func (b *Builder) userBreakdown(ctx context.Context) (Section, error) {
	counts, err := b.users.CountUsersByRole(ctx)
	if err != nil {
		return Section{}, errors.Wrap(err, "counting users by role")
	}

	roles := make([]string, 0, len(counts))
	for role := range counts {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	sec := Section{Title: "User Role Breakdown", Headers: []string{"Role", "Count"}}
	for _, role := range roles {
		name := role
		if name == "" {
			name = "Unknown"
		}
		sec.Rows = append(sec.Rows, []string{name, fmt.Sprintf("%d", counts[role])})
	}
	return sec, nil
}

func (b *Builder) studentPerformance(ctx context.Context, from, to *time.Time) (Section, error) {
	records, err := b.grades.FilterRecords(ctx, grade.QueryFilter{GradedFrom: from, GradedTo: to})
	if err != nil {
		return Section{}, errors.Wrap(err, "querying grade records")
	}

	sec := Section{
		Title:   "Student Performance",
		Headers: []string{"Student", "Subject", "Quiz", "Mid", "Assignment", "Final", "Total", "Remarks", "Graded At"},
	}
	for _, rec := range records {
		sec.Rows = append(sec.Rows, []string{
			rec.StudentName,
			rec.SubjectCode,
			scoreStr(rec.QuizScore),
			scoreStr(rec.MidScore),
			scoreStr(rec.AssignmentScore),
			scoreStr(rec.FinalExamScore),
			scoreStr(rec.Score),
			rec.Remarks,
			rec.GradedAt.Format("2006-01-02 15:04"),
		})
	}
	return sec, nil
}

func (b *Builder) feeCollection(ctx context.Context, from, to *time.Time) (Section, error) {
	sum, err := b.payments.SummarizePayments(ctx, from, to)
	if err != nil {
		return Section{}, errors.Wrap(err, "summarizing payments")
	}
	return Section{
		Title:   "Fee Collection Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total payments", fmt.Sprintf("%d", sum.Count)},
			{"Amount collected", fmt.Sprintf("%.2f", sum.Total)},
		},
	}, nil
}

// Transcript builds a per-student transcript document from grade records.
func Transcript(studentName string, records []grade.Record) Document {
	sec := Section{
		Title:   "Academic Record",
		Headers: []string{"Subject", "Quiz", "Mid", "Assignment", "Final", "Total", "Remarks", "Graded At"},
	}
	for _, rec := range records {
		sec.Rows = append(sec.Rows, []string{
			rec.SubjectCode,
			scoreStr(rec.QuizScore),
			scoreStr(rec.MidScore),
			scoreStr(rec.AssignmentScore),
			scoreStr(rec.FinalExamScore),
			scoreStr(rec.Score),
			rec.Remarks,
			rec.GradedAt.Format("2006-01-02 15:04"),
		})
	}
	return Document{
		Title:    fmt.Sprintf("Transcript - %s", studentName),
		Filename: "transcript_" + strings.ReplaceAll(strings.ToLower(studentName), " ", "_"),
		Sections: []Section{sec},
	}
}

func scoreStr(s *float64) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *s)
}
