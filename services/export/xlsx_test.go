package exportsvc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/feeportal/core/student"
)

func TestWriteRoster(t *testing.T) {
	paidAt := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	students := []student.Student{
		{Name: "Ada", Email: "ada@test.cd", FeeAmount: 5000, FeesPaid: true, PaymentDate: &paidAt},
		{Name: "Bob", Email: "bob@test.cd", FeeAmount: 5000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, students))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(RosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Email", "Fee Amount", "Fees Paid", "Payment Date"}, rows[0])
	assert.Equal(t, []string{"Ada", "ada@test.cd", "5000", "yes", "2024-03-01 10:30:00"}, rows[1])
	assert.Equal(t, []string{"Bob", "bob@test.cd", "5000", "no", "not paid"}, rows[2])
}

func TestWriteRoster_empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(RosterSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
