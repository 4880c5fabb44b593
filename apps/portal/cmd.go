package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/feeportal/client/payment"
	"github.com/trezcool/feeportal/client/roster"
	"github.com/trezcool/feeportal/client/session"
	"github.com/trezcool/feeportal/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in: run `portal login -email EMAIL` first")
)

type commandLine struct {
	sess        *session.Session
	roster      *roster.Roster
	paymentOpts payment.Options
	logger      core.Logger
	in          io.Reader
	out         io.Writer

	reader *bufio.Reader
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  signup -name NAME -email EMAIL   - create an account (the password is prompted)")
	_, _ = fmt.Fprintln(cli.out, "  login -email EMAIL               - log in (the password is prompted)")
	_, _ = fmt.Fprintln(cli.out, "  logout                           - log out")
	_, _ = fmt.Fprintln(cli.out, "  whoami                           - show the logged in user")
	_, _ = fmt.Fprintln(cli.out, "  students [-search TERM]          - list the students")
	_, _ = fmt.Fprintln(cli.out, "  me                               - show your student record")
	_, _ = fmt.Fprintln(cli.out, "  edit [-name NAME] [-email EMAIL] - edit your student record")
	_, _ = fmt.Fprintln(cli.out, "  pay                              - pay your fees")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	cli.reader = bufio.NewReader(cli.in)

	signupCmd := flag.NewFlagSet("signup", flag.ContinueOnError)
	signupCmd.SetOutput(cli.out)
	signupName := signupCmd.String("name", "", "Your full name.")
	signupEmail := signupCmd.String("email", "", "Your email.")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginEmail := loginCmd.String("email", "", "Your email.")

	studentsCmd := flag.NewFlagSet("students", flag.ContinueOnError)
	studentsCmd.SetOutput(cli.out)
	studentsSearch := studentsCmd.String("search", "", "Only show the students whose name or email contains TERM.")

	editCmd := flag.NewFlagSet("edit", flag.ContinueOnError)
	editCmd.SetOutput(cli.out)
	editName := editCmd.String("name", "", "Your new name.")
	editEmail := editCmd.String("email", "", "Your new email.")

	switch args[1] {
	case "signup":
		if err := signupCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *signupName == "" || *signupEmail == "" {
			signupCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		return cli.signup(ctx, *signupName, *signupEmail, pwd)

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail, pwd)

	case "logout":
		return cli.logout(ctx)

	case "whoami":
		return cli.whoami()

	case "students":
		if err := studentsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listStudents(*studentsSearch)

	case "me":
		return cli.showOwn()

	case "edit":
		if err := editCmd.Parse(args[2:]); err != nil {
			return err
		}
		set := make(map[string]bool)
		editCmd.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if len(set) == 0 {
			editCmd.Usage()
			return errHelp
		}
		var name, email *string
		if set["name"] {
			name = editName
		}
		if set["email"] {
			email = editEmail
		}
		return cli.editOwn(ctx, name, email)

	case "pay":
		return cli.pay(ctx)

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

func (cli *commandLine) prompt(label string) (string, error) {
	_, _ = fmt.Fprintf(cli.out, "%s: ", label)
	line, err := cli.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// printFieldErrors prints validation messages sorted by field.
func (cli *commandLine) printFieldErrors(err error) {
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		return
	}
	flds := vErr.FieldMap()
	names := make([]string, 0, len(flds))
	for name := range flds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(cli.out, "  %s: %s\n", name, flds[name])
	}
}
