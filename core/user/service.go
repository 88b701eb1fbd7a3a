package user

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrUnknownAction  = errors.New("unknown action")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive, isApproved *bool) (User, error)
		CountUsersByRole(ctx context.Context) (map[string]int, error)
		DeleteUsersByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		Roles:      nu.Roles,
		IsActive:   true,
		IsApproved: true, // admin-created users skip the approval queue
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     uu.Email,
		Roles:     uu.Roles,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive, uu.IsApproved)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil, nil)
}

// Apply performs a moderation action on the given user and returns the
// updated user plus a human message describing what happened.
func (svc *Service) Apply(ctx context.Context, id int, action ManageAction) (User, string, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, "", err
	}

	bTrue, bFalse := true, false
	var isActive, isApproved *bool
	switch action {
	case ActionApprove:
		isApproved = &bTrue
	case ActionDisapprove:
		isApproved = &bFalse
	case ActionActivate:
		isActive = &bTrue
	case ActionDeactivate:
		isActive = &bFalse
	case ActionDelete:
		uname := usr.Username
		if err := svc.repo.DeleteUsersByID(ctx, id); err != nil {
			return User{}, "", err
		}
		svc.log.Info(fmt.Sprintf("user %q deleted", uname))
		return User{}, fmt.Sprintf("User %s has been deleted.", uname), nil
	default:
		return User{}, "", ErrUnknownAction
	}

	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr, isActive, isApproved)
	if err != nil {
		return User{}, "", err
	}
	return usr, fmt.Sprintf("User %s has been %sd.", usr.Username, action), nil
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// GetStats assembles the admin-panel dashboard summary.
func (svc *Service) GetStats(ctx context.Context, recentLimit int) (Stats, error) {
	users, err := svc.repo.QueryAllUsers(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying users")
	}
	breakdown, err := svc.repo.CountUsersByRole(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting users by role")
	}

	stats := Stats{
		TotalUsers:    len(users),
		RoleBreakdown: breakdown,
	}
	for _, usr := range users {
		if !usr.IsApproved {
			stats.PendingApprovals++
		}
		if usr.IsActive {
			stats.ActiveUsers++
		}
	}

	// most recent registrations first
	recent := make([]User, len(users))
	copy(recent, users)
	sort.Slice(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	stats.RecentRegistrations = recent
	return stats, nil
}
