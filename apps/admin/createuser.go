package main

import (
	"context"
	"fmt"

	"github.com/trezcool/feeportal/core/user"
)

func (cli *commandLine) createUser(ctx context.Context, name, email, pwd string) error {
	usr, st, err := cli.usrSvc.Create(ctx, user.NewUser{Name: name, Email: email, Password: pwd})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "created user %s <%s> (id: %s, student: %s)\n", usr.Name, usr.Email, usr.ID, st.ID)
	return nil
}
