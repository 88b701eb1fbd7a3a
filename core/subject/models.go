package subject

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tsfaye/sims/core"
)

// Subject types
const (
	TypeCore     = "core"
	TypeElective = "elective"
)

// Subject is one teachable unit offered at a specific grade level.
type Subject struct {
	ID          int       `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	GradeLevel  int       `json:"grade_level" db:"grade_level"`
	CreditHours int       `json:"credit_hours" db:"credit_hours"`
	SubjectType string    `json:"subject_type" db:"subject_type"`
	TeacherID   *int      `json:"teacher_id" db:"teacher_id"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (s Subject) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Code)
}

// NewSubject contains information needed to create a Subject.
type NewSubject struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	GradeLevel  int    `json:"grade_level" validate:"required,min=1,max=12"`
	CreditHours int    `json:"credit_hours" validate:"omitempty,min=1"`
	SubjectType string `json:"subject_type" validate:"omitempty,oneof=core elective"`
}

func (ns *NewSubject) Validate() error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	if ns.CreditHours == 0 {
		ns.CreditHours = 3
	}
	if ns.SubjectType == "" {
		ns.SubjectType = TypeCore
	}
	return core.Validate.Struct(ns)
}

type QueryFilter struct {
	Code       string `query:"code"`
	GradeLevel int    `query:"grade_level"`
	TeacherID  int    `query:"teacher_id"`
	IsActive   *bool  `query:"is_active"`
	Unassigned bool   `query:"unassigned"`
}

// WaitlistEntry queues a student for a full subject; Position is 1-based.
type WaitlistEntry struct {
	ID        int       `json:"id" db:"id"`
	SubjectID int       `json:"subject_id" db:"subject_id"`
	StudentID int       `json:"student_id" db:"student_id"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// CodeForName generates the short catalog code for a subject name at a grade
// level: G{grade}_{SHORT} where SHORT is the first letters of the upper-cased
// name, "AND" dropped, capped at 6.
func CodeForName(grade int, name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	short := strings.ReplaceAll(b.String(), "AND", "")
	if len(short) > 6 {
		short = short[:6]
	}
	return fmt.Sprintf("G%d_%s", grade, short)
}

// GradeCatalog is the intended set of core subjects per grade level.
var GradeCatalog = map[int][]string{
	1: lowerGradeSubjects(),
	2: lowerGradeSubjects(),
	3: lowerGradeSubjects(),
	4: lowerGradeSubjects(),
	5: lowerGradeSubjects(),
	6: lowerGradeSubjects(),
	7: upperGradeSubjects(),
	8: upperGradeSubjects(),
}

// CatalogRemovals lists subjects that no longer belong to a grade's intended
// catalog and must be deactivated when the catalog is ensured.
var CatalogRemovals = map[int][]string{
	2: {"Science", "Social Studies"},
	3: {"Science", "Social Studies"},
	4: {"Science", "Geography"},
	5: {"Science", "Biology"},
	6: {"Science", "Physics"},
	7: {"Science", "Chemistry", "Moral Education"},
	8: {"Advanced Science", "Science", "Moral Education"},
}

func lowerGradeSubjects() []string {
	return []string{
		"Amharic",
		"English",
		"Environmental Science",
		"Moral Education",
		"Performing and Visual Arts",
		"Health and Physical Education",
	}
}

func upperGradeSubjects() []string {
	return []string{
		"Amharic",
		"English",
		"Mathematics",
		"General Science",
		"Social Studies",
		"Citizenship Education",
		"Performing and Visual Arts",
		"Information Technology",
		"Health and Physical Education",
		"Career and Technical Education",
	}
}
