package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc     *user.Service
	studentSvc *student.Service
	migrate    func(ctx context.Context, command string, args ...string) error
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                - run a goose command (up, down, status, redo, version...)")
	_, _ = fmt.Fprintln(cli.out, "  createuser -name NAME -email EMAIL   - create a user and its student record")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL           - set a new password for a user")
	_, _ = fmt.Fprintln(cli.out, "  exportroster -o FILE                 - export the student roster as an xlsx file")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createUserCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	createUserCmd.SetOutput(cli.out)
	createUserName := createUserCmd.String("name", "", "The user's full name. The password will be prompted next.")
	createUserEmail := createUserCmd.String("email", "", "The user's email.")

	resetPwdCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPwdCmd.SetOutput(cli.out)
	resetPwdEmail := resetPwdCmd.String("email", "", "The user's email. The new password will be prompted next.")

	exportCmd := flag.NewFlagSet("exportroster", flag.ContinueOnError)
	exportCmd.SetOutput(cli.out)
	exportOut := exportCmd.String("o", "roster.xlsx", "The output file.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2], args[3:]...)

	case "createuser":
		if err := createUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createUserName == "" || *createUserEmail == "" {
			createUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			createUserCmd.Usage()
			return errHelp
		}
		return cli.createUser(ctx, *createUserName, *createUserEmail, pwd)

	case "resetpassword":
		if err := resetPwdCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPwdEmail == "" {
			resetPwdCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter new password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPwdCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPwdEmail, pwd)

	case "exportroster":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportRoster(ctx, *exportOut)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
