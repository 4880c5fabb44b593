package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/feeportal/client/roster"
	"github.com/trezcool/feeportal/core/student"
)

const dateFmt = "2006-01-02 15:04"

var errNoRecord = errors.New("no student record is linked to your account")

// loaded waits for the background fetches of the roster.
func (cli *commandLine) loaded() (roster.State, error) {
	if !cli.sess.State().Authenticated() {
		return roster.State{}, errNotLoggedIn
	}
	cli.roster.Wait()
	return cli.roster.State(), nil
}

func (cli *commandLine) listStudents(term string) error {
	st, err := cli.loaded()
	if err != nil {
		return err
	}
	if st.RosterSync.Status == roster.Failed && len(st.Roster) == 0 {
		return st.RosterSync.Err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tFEE\tPAID\tPAYMENT DATE")
	for _, s := range cli.roster.Search(term) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.Name, s.Email, s.FeeAmount, yesNo(s.FeesPaid), paymentDate(s))
	}
	return w.Flush()
}

func (cli *commandLine) own() (student.Student, error) {
	st, err := cli.loaded()
	if err != nil {
		return student.Student{}, err
	}
	switch st.OwnSync.Status {
	case roster.Missing:
		return student.Student{}, errNoRecord
	case roster.Failed:
		return student.Student{}, st.OwnSync.Err
	}
	if st.Own == nil {
		return student.Student{}, errNoRecord
	}
	return *st.Own, nil
}

func (cli *commandLine) showOwn() error {
	own, err := cli.own()
	if err != nil {
		return err
	}
	cli.printStudent(own)
	return nil
}

func (cli *commandLine) editOwn(ctx context.Context, name, email *string) error {
	if _, err := cli.own(); err != nil {
		return err
	}
	if err := cli.roster.UpdateOwnRecord(ctx, student.UpdateStudent{Name: name, Email: email}); err != nil {
		cli.printFieldErrors(err)
		return err
	}
	_, _ = fmt.Fprintln(cli.out, "profile updated")
	return cli.showOwn()
}

func (cli *commandLine) printStudent(s student.Student) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", s.Name)
	_, _ = fmt.Fprintf(w, "Email:\t%s\n", s.Email)
	_, _ = fmt.Fprintf(w, "Fee:\t%d\n", s.FeeAmount)
	_, _ = fmt.Fprintf(w, "Paid:\t%s\n", yesNo(s.FeesPaid))
	_, _ = fmt.Fprintf(w, "Payment date:\t%s\n", paymentDate(s))
	_ = w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func paymentDate(s student.Student) string {
	if s.PaymentDate == nil {
		return "-"
	}
	return s.PaymentDate.Format(dateFmt)
}
