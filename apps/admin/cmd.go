package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
	usrSvc  *user.Service
	subSvc  *subject.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [ARGS] - run database migrations (up by default)")
	fmt.Println("  adduser -username USERNAME [-email EMAIL] [-admin] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  deactivatesubject -code CODE [-grade GRADE] - deactivate subjects by code")
	fmt.Println("  setsubjects [-grade GRADE] - reconcile the subject catalog")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. Optional.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	deactivateCmd := flag.NewFlagSet("deactivatesubject", flag.ExitOnError)
	deactivateCode := deactivateCmd.String("code", "", "The subject code to deactivate.")
	deactivateGrade := deactivateCmd.Int("grade", 0, "Restrict to one grade level. Optional.")

	setSubjectsCmd := flag.NewFlagSet("setsubjects", flag.ExitOnError)
	setSubjectsGrade := setSubjectsCmd.Int("grade", 0, "Only reconcile this grade level. Optional.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "deactivatesubject":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deactivateCode == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		var grade *int
		if *deactivateGrade != 0 {
			grade = deactivateGrade
		}
		return cli.deactivateSubject(*deactivateCode, grade)

	case "setsubjects":
		if err := setSubjectsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.setSubjects(*setSubjectsGrade)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
