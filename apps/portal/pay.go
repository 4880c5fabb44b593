package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/feeportal/client/payment"
	"github.com/trezcool/feeportal/core/student"
)

func (cli *commandLine) pay(ctx context.Context) error {
	own, err := cli.own()
	if err != nil {
		return err
	}
	if own.FeesPaid {
		_, _ = fmt.Fprintln(cli.out, "Payment already completed: your fees have already been paid.")
		return nil
	}

	opts := cli.paymentOpts
	opts.OnSucceeded = func(student.Student) {
		_, _ = fmt.Fprintln(cli.out, "Redirecting to profile...")
	}
	sim := payment.New(cli.roster, cli.logger, opts)
	defer sim.Close()

	_, _ = fmt.Fprintf(cli.out, "Fee amount: %d\n", own.FeeAmount)
	for {
		form, err := cli.readPaymentForm()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cli.out, "Processing payment...")
		st, err := sim.Submit(ctx, form)
		if err != nil {
			cli.printFieldErrors(err)
			return err
		}

		if st.Status == payment.Succeeded {
			_, _ = fmt.Fprintln(cli.out, "Payment successful! Your fee payment has been processed successfully.")
			sim.Wait()
			return cli.showOwn()
		}

		_, _ = fmt.Fprintln(cli.out, "Payment failed: there was an issue processing your payment.")
		answer, err := cli.prompt("Try again? [y/N]")
		if err != nil || !strings.EqualFold(answer, "y") {
			return fmt.Errorf("payment failed: %w", st.Err)
		}
		sim.Retry()
	}
}

// readPaymentForm prompts for the card details. The CVV is read without echo.
func (cli *commandLine) readPaymentForm() (payment.Form, error) {
	var (
		form payment.Form
		err  error
	)
	fields := []struct {
		label string
		dst   *string
	}{
		{"Cardholder name", &form.CardholderName},
		{"Card number", &form.CardNumber},
		{"Expiry date (MM/YY)", &form.ExpiryDate},
	}
	for _, f := range fields {
		if *f.dst, err = cli.prompt(f.label); err != nil {
			return form, err
		}
	}
	if form.CVV, err = cli.promptPassword("CVV:"); err != nil {
		return form, err
	}

	address := []struct {
		label string
		dst   *string
	}{
		{"Street address", &form.BillingAddress.Street},
		{"City", &form.BillingAddress.City},
		{"ZIP code", &form.BillingAddress.ZipCode},
		{"Country", &form.BillingAddress.Country},
	}
	for _, f := range address {
		if *f.dst, err = cli.prompt(f.label); err != nil {
			return form, err
		}
	}
	return form, nil
}
