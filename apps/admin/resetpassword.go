package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	if err := cli.usrSvc.ResetPassword(ctx, email, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password reset for %s\n", email)
	return nil
}
