package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
	inmemdb "github.com/tsfaye/sims/storage/database/inmem"
	testutil "github.com/tsfaye/sims/tests"
)

func setup(t *testing.T) (*commandLine, *inmemdb.DB) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}

	logger := testutil.NopLogger{}
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: db,
		usrSvc:  user.NewService(db, logger),
		subSvc:  subject.NewService(db, logger),
	}, db
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "no subcommand defaults to up", args: []string{"migrate"}},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "enrollment", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, db := setup(t)

	existing := testutil.CreateUser(t, db, "User", "awe", "awe@test.cd", "mdr", nil, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "lol"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "fresh", "-email", "fresh@test.cd"}, extra: extra{pwd: "lol"}},
		{name: "create admin", args: []string{"adduser", "-username", "boss", "-admin"}, extra: extra{pwd: "lol"}},
		{name: "update existing", args: []string{"adduser", "-username", existing.Username}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}

	ctx := context.Background()

	fresh, err := db.GetUserByUsername(ctx, "fresh")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !fresh.IsActive || !fresh.IsApproved {
		t.Error("created users must be active and approved")
	}

	boss, err := db.GetUserByUsername(ctx, "boss")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !boss.IsAdmin() {
		t.Errorf("boss.Roles = %v; want all roles", boss.Roles)
	}

	updated, err := db.GetUserByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if !updated.IsActive || !updated.IsApproved {
		t.Error("updated users must be re-activated and approved")
	}
	if bytes.Equal(updated.PasswordHash, existing.PasswordHash) {
		t.Error("failed to update password")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, db := setup(t)

	usr := testutil.CreateUser(t, db, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := db.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_deactivateSubject(t *testing.T) {
	cli, db := setup(t)

	testutil.CreateSubject(t, db, "MATH", "Mathematics", 1, true)
	testutil.CreateSubject(t, db, "MATH", "Mathematics", 2, true)
	testutil.CreateSubject(t, db, "ENG", "English", 1, true)

	tests := []cliTest{
		{name: "no args", args: []string{"deactivatesubject"}, wantErr: errHelp},
		{name: "not found", args: []string{"deactivatesubject", "-code", "LOL"}, wantErrStr: `no subject found with code "LOL"`},
		{
			name: "not found for grade", args: []string{"deactivatesubject", "-code", "ENG", "-grade", "9"},
			wantErrStr: `no subject found with code "ENG" for grade 9`,
		},
		{name: "deactivate one grade", args: []string{"deactivatesubject", "-code", "MATH", "-grade", "1"}},
		{name: "deactivate remaining", args: []string{"deactivatesubject", "-code", "MATH"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	// rows of other codes are untouched
	active := true
	remaining, err := cli.subSvc.Filter(context.Background(), subject.QueryFilter{IsActive: &active})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Code != "ENG" {
		t.Errorf("active subjects = %+v; want only ENG", remaining)
	}
}

func Test_commandLine_setSubjects(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "unknown grade", args: []string{"setsubjects", "-grade", "99"}, wantErrStr: "no catalog defined for grade 99"},
		{name: "one grade", args: []string{"setsubjects", "-grade", "1"}},
		{name: "all grades", args: []string{"setsubjects"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	// the catalog is in place for every defined grade
	for grade := range subject.GradeCatalog {
		active := true
		subs, err := cli.subSvc.Filter(context.Background(), subject.QueryFilter{GradeLevel: grade, IsActive: &active})
		if err != nil {
			t.Fatalf("Filter() failed: %v", err)
		}
		if len(subs) != len(subject.GradeCatalog[grade]) {
			t.Errorf("grade %d: %d active subjects; want %d", grade, len(subs), len(subject.GradeCatalog[grade]))
		}
	}
}
