package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tsfaye/sims/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminSuper = "admin:super"

	// Staff
	RoleRegistrar = "registrar:"
	RoleTeacher   = "teacher:"
	RoleFinance   = "finance:"

	// Community
	RoleStudent = "student:"
	RoleParent  = "parent:"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminSuper}
	StaffRoles = []string{RoleRegistrar, RoleTeacher, RoleFinance}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminSuper: 30,
		RoleAdmin:      21,

		// Staff: 20 - 11
		RoleRegistrar: 15,
		RoleFinance:   13,
		RoleTeacher:   11,

		// Community: 10 - 1
		RoleParent:  2,
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Finance", Value: RoleFinance},
		{Name: "Registrar", Value: RoleRegistrar},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleAdminSuper},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 7)
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	all = append(all, RoleStudent, RoleParent)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// PrimaryRole returns the highest-priority role held, or "" for an empty
// list. Role breakdowns bucket each user exactly once, under this role, so
// per-role counts always sum to the total user count.
func PrimaryRole(roles []string) string {
	var primary string
	for _, role := range roles {
		if primary == "" || RolePriority(role) > RolePriority(primary) {
			primary = role
		}
	}
	return primary
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Roles        []string  `json:"roles" db:"-"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsApproved   bool      `json:"is_approved" db:"is_approved"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool     { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsRegistrar() bool { return u.RoleStartsWith(RoleRegistrar) }
func (u *User) IsTeacher() bool   { return u.RoleStartsWith(RoleTeacher) }
func (u *User) IsStudent() bool   { return u.RoleStartsWith(RoleStudent) }
func (u *User) IsParent() bool    { return u.RoleStartsWith(RoleParent) }
func (u *User) IsFinance() bool   { return u.RoleStartsWith(RoleFinance) }

// HasRole reports an exact role match (no prefix semantics).
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"required,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	IsApproved      *bool    `json:"is_approved"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, svc *Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

// ManageAction is a moderation action applied to an existing user from the
// manage-users surface.
type ManageAction string

const (
	ActionApprove    ManageAction = "approve"
	ActionDisapprove ManageAction = "disapprove"
	ActionActivate   ManageAction = "activate"
	ActionDeactivate ManageAction = "deactivate"
	ActionDelete     ManageAction = "delete"
)

func (a ManageAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionDisapprove, ActionActivate, ActionDeactivate, ActionDelete:
		return true
	}
	return false
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	IsApproved  *bool     `query:"is_approved"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.IsApproved == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Stats is the admin-panel dashboard summary.
type Stats struct {
	TotalUsers          int            `json:"total_users"`
	PendingApprovals    int            `json:"pending_approvals"`
	ActiveUsers         int            `json:"active_users"`
	RecentRegistrations []User         `json:"recent_registrations"`
	RoleBreakdown       map[string]int `json:"role_breakdown"`
}
