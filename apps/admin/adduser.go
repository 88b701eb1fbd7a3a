package main

import (
	"context"
	"time"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now

	active, approved := true, true
	if usr.ID == 0 {
		usr.IsActive = true
		usr.IsApproved = true
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &active, &approved)
	return err
}
