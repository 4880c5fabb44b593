package main

import (
	"context"
	"errors"
	"fmt"
)

var errInvalidLogin = errors.New("invalid email or password")

func (cli *commandLine) signup(ctx context.Context, name, email, pwd string) error {
	if err := cli.sess.Signup(ctx, name, email, pwd); err != nil {
		cli.printFieldErrors(err)
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "account created for %s, you can now log in\n", email)
	return nil
}

func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	if !cli.sess.Login(ctx, email, pwd) {
		return errInvalidLogin
	}
	ident := cli.sess.State().Identity
	_, _ = fmt.Fprintf(cli.out, "logged in as %s <%s>\n", ident.Name, ident.Email)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	cli.sess.Logout(ctx)
	_, _ = fmt.Fprintln(cli.out, "logged out")
	return nil
}

func (cli *commandLine) whoami() error {
	ident := cli.sess.State().Identity
	if ident == nil {
		return errNotLoggedIn
	}
	_, _ = fmt.Fprintf(cli.out, "%s <%s> (id: %s)\n", ident.Name, ident.Email, ident.ID)
	return nil
}
