// Package exportsvc renders the student roster as a spreadsheet.
package exportsvc

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/feeportal/core/student"
)

const (
	RosterSheet       = "Roster"
	XLSXContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	rosterDateLayout  = "2006-01-02 15:04:05"
	rosterNotPaidText = "not paid"
)

var rosterHeader = []interface{}{"Name", "Email", "Fee Amount", "Fees Paid", "Payment Date"}

// WriteRoster writes the students, one per row after a header row, as an xlsx workbook.
func WriteRoster(w io.Writer, students []student.Student) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), RosterSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(RosterSheet, "A1", &rosterHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, st := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		row := []interface{}{st.Name, st.Email, st.FeeAmount, paidText(st.FeesPaid), paymentDateText(st.PaymentDate)}
		if err = f.SetSheetRow(RosterSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func paidText(paid bool) string {
	if paid {
		return "yes"
	}
	return "no"
}

func paymentDateText(pd *time.Time) string {
	if pd == nil {
		return rosterNotPaidText
	}
	return pd.UTC().Format(rosterDateLayout)
}
