package inmemdb

import (
	"context"
	"strings"

	"github.com/tsfaye/sims/core/user"
)

var _ user.Repository = (*DB)(nil)

func (db *DB) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	excluded := func(id int) bool {
		for _, usr := range excludedUsers {
			if usr.ID == id {
				return true
			}
		}
		return false
	}

	for _, usr := range db.users {
		if excluded(usr.ID) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (db *DB) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.userPK++
	usr.ID = db.userPK
	db.users[usr.ID] = &usr
	return usr, nil
}

func (db *DB) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	users := make([]user.User, 0, len(db.users))
	for _, usr := range db.users {
		users = append(users, *usr)
	}
	return users, nil
}

func (db *DB) GetUserByID(ctx context.Context, id int) (user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if usr, ok := db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for _, usr := range db.users {
		if usr.Username == username {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for _, usr := range db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for _, usr := range db.users {
		if usr.Username == username || usr.Email == username {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var users []user.User
	for _, usr := range db.users {
		if matchUser(usr, filter) {
			users = append(users, *usr)
		}
	}
	return users, nil
}

func matchUser(usr *user.User, filter user.QueryFilter) bool {
	if search := strings.ToLower(filter.Search); search != "" {
		if !strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(strings.ToLower(usr.Username), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if usr.HasRole(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if filter.IsApproved != nil && usr.IsApproved != *filter.IsApproved {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (db *DB) UpdateUser(ctx context.Context, usr user.User, isActive, isApproved *bool) (user.User, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	orig, ok := db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	if isApproved != nil {
		orig.IsApproved = *isApproved
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		orig.UpdatedAt = usr.UpdatedAt
	}
	return *orig, nil
}

func (db *DB) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, usr := range db.users {
		counts[user.PrimaryRole(usr.Roles)]++
	}
	return counts, nil
}

func (db *DB) DeleteUsersByID(ctx context.Context, ids ...int) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, id := range ids {
		delete(db.users, id)
		// author FK is SET NULL on delete
		for _, ann := range db.announcements {
			if ann.CreatedBy == id {
				ann.CreatedBy = 0
			}
		}
	}
	return nil
}
