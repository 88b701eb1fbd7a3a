package subject

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core"
)

var (
	// errors
	ErrNotFound      = errors.New("subject not found")
	ErrCodeExists    = errors.New("a subject with this code already exists for this grade")
	ErrNotWaitlisted = errors.New("student is not on the waitlist")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		GetSubjectByNameAndGrade(ctx context.Context, name string, grade int) (Subject, error)
		FilterSubjects(ctx context.Context, filter QueryFilter) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		// DeactivateSubjects sets is_active=false on active rows matching code
		// (and grade when non-nil) and reports how many rows changed.
		DeactivateSubjects(ctx context.Context, code string, grade *int) (int, error)
		// Transact runs fn within one all-or-nothing unit.
		Transact(ctx context.Context, fn func(Repository) error) error

		// waitlist
		CreateWaitlistEntry(ctx context.Context, e WaitlistEntry) (WaitlistEntry, error)
		QueryWaitlist(ctx context.Context, subjectID int) ([]WaitlistEntry, error)
		DeleteWaitlistEntry(ctx context.Context, subjectID, studentID int) error
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		Code:        ns.Code,
		Name:        ns.Name,
		Description: ns.Description,
		GradeLevel:  ns.GradeLevel,
		CreditHours: ns.CreditHours,
		SubjectType: ns.SubjectType,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Subject, error) {
	return svc.repo.FilterSubjects(ctx, filter)
}

func (svc *Service) CountActive(ctx context.Context) (int, error) {
	active := true
	subs, err := svc.repo.FilterSubjects(ctx, QueryFilter{IsActive: &active})
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}

// AssignTeacher attaches the given subjects to a teacher.
func (svc *Service) AssignTeacher(ctx context.Context, teacherID int, subjectIDs ...int) ([]Subject, error) {
	assigned := make([]Subject, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		sub, err := svc.repo.GetSubjectByID(ctx, id)
		if err != nil {
			return assigned, errors.Wrapf(err, "finding subject %d", id)
		}
		sub.TeacherID = &teacherID
		sub.UpdatedAt = time.Now().UTC()
		sub, err = svc.repo.UpdateSubject(ctx, sub)
		if err != nil {
			return assigned, errors.Wrapf(err, "assigning subject %d", id)
		}
		assigned = append(assigned, sub)
	}
	return assigned, nil
}

// UnassignTeacher detaches a subject from whoever teaches it.
func (svc *Service) UnassignTeacher(ctx context.Context, subjectID int) (Subject, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	sub.TeacherID = nil
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

// UnassignAllFromTeacher detaches every subject currently assigned to the teacher.
func (svc *Service) UnassignAllFromTeacher(ctx context.Context, teacherID int) (int, error) {
	subs, err := svc.repo.FilterSubjects(ctx, QueryFilter{TeacherID: teacherID})
	if err != nil {
		return 0, err
	}
	for _, sub := range subs {
		sub.TeacherID = nil
		sub.UpdatedAt = time.Now().UTC()
		if _, err := svc.repo.UpdateSubject(ctx, sub); err != nil {
			return 0, errors.Wrapf(err, "unassigning subject %d", sub.ID)
		}
	}
	return len(subs), nil
}

// DeactivateByCode deactivates active subjects matching code, optionally
// restricted to one grade level. Rows of other codes are untouched.
func (svc *Service) DeactivateByCode(ctx context.Context, code string, grade *int) (int, error) {
	code = core.CleanString(code)
	if code == "" {
		return 0, core.NewValidationError(nil, core.FieldError{Field: "code", Error: "this field is required"})
	}
	return svc.repo.DeactivateSubjects(ctx, code, grade)
}

// CatalogChange describes one row touched by EnsureCatalog.
type CatalogChange struct {
	Subject Subject
	Action  string // "created" | "updated" | "exists" | "deactivated"
}

// EnsureCatalog reconciles one grade level against the intended subject
// catalog: create missing subjects, normalize existing ones (code, type,
// active flag) and deactivate subjects slated for removal. The whole grade is
// one all-or-nothing unit.
func (svc *Service) EnsureCatalog(ctx context.Context, grade int) ([]CatalogChange, error) {
	names, ok := GradeCatalog[grade]
	if !ok {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "grade",
			Error: fmt.Sprintf("no catalog defined for grade %d", grade),
		})
	}

	var changes []CatalogChange
	err := svc.repo.Transact(ctx, func(repo Repository) error {
		for _, name := range names {
			change, err := ensureSubject(ctx, repo, grade, name)
			if err != nil {
				return errors.Wrapf(err, "ensuring %q for grade %d", name, grade)
			}
			changes = append(changes, change)
		}

		for _, name := range CatalogRemovals[grade] {
			matches, err := repo.FilterSubjects(ctx, QueryFilter{GradeLevel: grade})
			if err != nil {
				return errors.Wrap(err, "listing grade subjects")
			}
			for _, sub := range matches {
				if !strings.EqualFold(sub.Name, name) || !sub.IsActive {
					continue
				}
				sub.IsActive = false
				sub.UpdatedAt = time.Now().UTC()
				sub, err = repo.UpdateSubject(ctx, sub)
				if err != nil {
					return errors.Wrapf(err, "deactivating %q for grade %d", sub.Name, grade)
				}
				changes = append(changes, CatalogChange{Subject: sub, Action: "deactivated"})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func ensureSubject(ctx context.Context, repo Repository, grade int, name string) (CatalogChange, error) {
	code := CodeForName(grade, name)

	sub, err := repo.GetSubjectByNameAndGrade(ctx, name, grade)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return CatalogChange{}, err
		}
		now := time.Now().UTC()
		sub, err = repo.CreateSubject(ctx, Subject{
			Code:        code,
			Name:        name,
			Description: fmt.Sprintf("%s for Grade %d", name, grade),
			GradeLevel:  grade,
			CreditHours: 3,
			SubjectType: TypeCore,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return CatalogChange{}, err
		}
		return CatalogChange{Subject: sub, Action: "created"}, nil
	}

	var updated bool
	if sub.Code != code {
		sub.Code = code
		updated = true
	}
	if sub.SubjectType != TypeCore {
		sub.SubjectType = TypeCore
		updated = true
	}
	if !sub.IsActive {
		sub.IsActive = true
		updated = true
	}
	if !updated {
		return CatalogChange{Subject: sub, Action: "exists"}, nil
	}

	sub.UpdatedAt = time.Now().UTC()
	sub, err = repo.UpdateSubject(ctx, sub)
	if err != nil {
		return CatalogChange{}, err
	}
	return CatalogChange{Subject: sub, Action: "updated"}, nil
}

// Waitlist returns a subject's waitlist ordered by position.
func (svc *Service) Waitlist(ctx context.Context, subjectID int) ([]WaitlistEntry, error) {
	entries, err := svc.repo.QueryWaitlist(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return entries, nil
}

// Enqueue appends a student to a subject's waitlist.
func (svc *Service) Enqueue(ctx context.Context, subjectID, studentID int) (WaitlistEntry, error) {
	entries, err := svc.repo.QueryWaitlist(ctx, subjectID)
	if err != nil {
		return WaitlistEntry{}, err
	}
	pos := 1
	for _, e := range entries {
		if e.StudentID == studentID {
			return e, nil // already queued
		}
		if e.Position >= pos {
			pos = e.Position + 1
		}
	}
	return svc.repo.CreateWaitlistEntry(ctx, WaitlistEntry{
		SubjectID: subjectID,
		StudentID: studentID,
		Position:  pos,
		CreatedAt: time.Now().UTC(),
	})
}

// Dequeue removes a student from a subject's waitlist (promotion or drop-out).
func (svc *Service) Dequeue(ctx context.Context, subjectID, studentID int) error {
	return svc.repo.DeleteWaitlistEntry(ctx, subjectID, studentID)
}
