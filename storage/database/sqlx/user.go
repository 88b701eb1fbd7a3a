// Package sqlxrepos implements the repositories on Postgres via sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// userRow mirrors the "user" table; Roles is TEXT[] and needs pq.StringArray.
type userRow struct {
	user.User
	Roles pq.StringArray `db:"roles"`
}

func (r userRow) unpack() user.User {
	usr := r.User
	usr.Roles = []string(r.Roles)
	return usr
}

func unpackUserRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unpack())
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapUserNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const userColumns = `id, name, username, email, roles, is_active, is_approved, password_hash, created_at, updated_at, last_login`

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	args := []interface{}{username}
	q := `SELECT username, email FROM "user" WHERE (username = $1`
	if email != "" {
		q += ` OR email = $2`
		args = append(args, email)
	}
	q += `)`
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += ` AND NOT (id = ANY($` + itoa(len(args)+1) + `))`
		args = append(args, pq.Array(ids))
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
	INSERT INTO "user" (name, username, email, roles, is_active, is_approved, password_hash, created_at, updated_at, last_login)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		usr.Name, usr.Username, usr.Email, pq.Array(usr.Roles), usr.IsActive, usr.IsApproved,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM "user"`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return unpackUserRows(rows), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "getting user by id")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE username = $1`
	if err := repo.db.GetContext(ctx, &row, q, username); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "getting user by username")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE email = $1`
	if err := repo.db.GetContext(ctx, &row, q, email); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "getting user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE username = $1 OR email = $1`
	if err := repo.db.GetContext(ctx, &row, q, username); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "getting user by username or email")
	}
	return row.unpack(), nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user" WHERE 1=1`
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		q += ` AND (LOWER(name) LIKE ` + p + ` OR LOWER(username) LIKE ` + p + ` OR LOWER(email) LIKE ` + p + `)`
	}
	if len(filter.Roles) > 0 {
		q += ` AND roles && ` + arg(pq.Array(filter.Roles))
	}
	if filter.IsActive != nil {
		q += ` AND is_active = ` + arg(*filter.IsActive)
	}
	if filter.IsApproved != nil {
		q += ` AND is_approved = ` + arg(*filter.IsApproved)
	}
	if !filter.CreatedFrom.IsZero() {
		q += ` AND created_at >= ` + arg(filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		q += ` AND created_at <= ` + arg(filter.CreatedTo)
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return unpackUserRows(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive, isApproved *bool) (user.User, error) {
	q := `UPDATE "user" SET id = id`
	args := []interface{}{usr.ID}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if !usr.UpdatedAt.IsZero() {
		q += `, updated_at = ` + arg(usr.UpdatedAt)
	}
	if usr.Name != "" {
		q += `, name = ` + arg(usr.Name)
	}
	if usr.Username != "" {
		q += `, username = ` + arg(usr.Username)
	}
	if usr.Email != "" {
		q += `, email = ` + arg(usr.Email)
	}
	if usr.Roles != nil {
		q += `, roles = ` + arg(pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		q += `, password_hash = ` + arg(usr.PasswordHash)
	}
	if isActive != nil {
		q += `, is_active = ` + arg(*isActive)
	}
	if isApproved != nil {
		q += `, is_approved = ` + arg(*isApproved)
	}
	if !usr.LastLogin.IsZero() {
		q += `, last_login = ` + arg(usr.LastLogin)
	}
	q += ` WHERE id = $1`

	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

// CountUsersByRole buckets each user once, under their highest-priority
// role, so the counts sum to the total user count.
func (repo userRepository) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	var rows []pq.StringArray
	if err := repo.db.SelectContext(ctx, &rows, `SELECT roles FROM "user"`); err != nil {
		return nil, errors.Wrap(err, "counting users by role")
	}

	counts := make(map[string]int)
	for _, roles := range rows {
		counts[user.PrimaryRole([]string(roles))]++
	}
	return counts, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	q := `DELETE FROM "user" WHERE id = ANY($1)`
	if _, err := repo.db.ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
