package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/user"
	"github.com/trezcool/feeportal/services/export"
	"github.com/trezcool/feeportal/tests"
)

func setup() (*commandLine, *testutil.Stack, *bytes.Buffer) {
	s := testutil.NewStack()
	var out bytes.Buffer
	cli := &commandLine{
		usrSvc:     s.UserSvc,
		studentSvc: s.StudentSvc,
		migrate:    func(context.Context, string, ...string) error { return nil },
		out:        &out,
	}
	return cli, s, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_help(t *testing.T) {
	cli, _, out := setup()

	for _, args := range [][]string{nil, {"lol"}} {
		err := cli.run(context.Background(), append([]string{"admin"}, args...))
		assert.Equal(t, errHelp, err)
	}
	assert.Contains(t, out.String(), "createuser -name NAME -email EMAIL")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup()

	var gotCmd string
	var gotArgs []string
	cli.migrate = func(_ context.Context, command string, args ...string) error {
		gotCmd, gotArgs = command, args
		if command == "lol" {
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}, extra: []string{"1"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.args[1], gotCmd)
				if want, ok := tt.extra.([]string); ok {
					assert.Equal(t, want, gotArgs)
				}
			}
		})
	}
}

func Test_commandLine_createUser(t *testing.T) {
	cli, s, _ := setup()
	s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")

	type extra struct {
		pwd    string
		pwdErr error
	}
	ttyErr := errors.New("not a terminal")
	tests := []cliTest{
		{name: "no args", args: []string{"createuser"}, wantErr: errHelp},
		{name: "no email", args: []string{"createuser", "-name", "Bob"}, extra: extra{pwd: "pw123456"}, wantErr: errHelp},
		{name: "no password", args: []string{"createuser", "-name", "Bob", "-email", "bob@test.cd"}, wantErr: errHelp},
		{name: "prompt failure", args: []string{"createuser", "-name", "Bob", "-email", "bob@test.cd"}, extra: extra{pwdErr: ttyErr}, wantErr: ttyErr},
		{name: "email exists", args: []string{"createuser", "-name", "Ada", "-email", "ada@test.cd"}, extra: extra{pwd: "pw123456"}, wantErr: user.ErrEmailExists},
		{name: "created", args: []string{"createuser", "-name", "Bob", "-email", "bob@test.cd"}, extra: extra{pwd: "pw123456"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if ex, ok := tt.extra.(extra); ok {
				return []byte(ex.pwd), ex.pwdErr
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			usr, err := s.UserSvc.GetByEmail(context.Background(), "bob@test.cd")
			require.NoError(t, err)
			assert.NoError(t, usr.CheckPassword("pw123456"))
		})
	}

	// a weak password is rejected by the password policy
	readPasswordFunc = func(int) ([]byte, error) { return []byte("123"), nil }
	err := cli.run(context.Background(), []string{"admin", "createuser", "-name", "Eve", "-email", "eve@test.cd"})
	assert.True(t, core.IsValidation(err))
}

func Test_commandLine_exportRoster(t *testing.T) {
	cli, s, out := setup()
	s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	s.CreateUser(t, "Bob", "bob@test.cd", "pw123456")

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, cli.run(context.Background(), []string{"admin", "exportroster", "-o", path}))
	assert.Contains(t, out.String(), "exported 2 students")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(exportsvc.RosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Ada", rows[1][0])
	assert.Equal(t, "Bob", rows[2][0])

	err = cli.run(context.Background(), []string{"admin", "exportroster", "-o", filepath.Join(t.TempDir(), "missing", "x.xlsx")})
	assert.Error(t, err)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, s, out := setup()
	s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")

	var pwd string
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }

	err := cli.run(context.Background(), []string{"admin", "resetpassword"})
	assert.Equal(t, errHelp, err)

	pwd = ""
	err = cli.run(context.Background(), []string{"admin", "resetpassword", "-email", "ada@test.cd"})
	assert.Equal(t, errHelp, err)

	pwd = "new-secret"
	err = cli.run(context.Background(), []string{"admin", "resetpassword", "-email", "bob@test.cd"})
	assert.ErrorIs(t, err, user.ErrNotFound)

	pwd = "1234567890"
	err = cli.run(context.Background(), []string{"admin", "resetpassword", "-email", "ada@test.cd"})
	assert.True(t, core.IsValidation(err))

	pwd = "new-secret"
	require.NoError(t, cli.run(context.Background(), []string{"admin", "resetpassword", "-email", "ada@test.cd"}))
	assert.Contains(t, out.String(), "password reset for ada@test.cd")
	s.Login(t, "ada@test.cd", "new-secret")
}
