package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feeportal/core/student"
)

const studentColumns = `id, name, email, fees_paid, payment_date, fee_amount, user_id, created_at`

type studentRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Email       string    `db:"email"`
	FeesPaid    bool      `db:"fees_paid"`
	PaymentDate null.Time `db:"payment_date"`
	FeeAmount   int64     `db:"fee_amount"`
	UserID      string    `db:"user_id"`
	CreatedAt   time.Time `db:"created_at"`
}

func toStudentRow(st student.Student) studentRow {
	return studentRow{
		ID:          st.ID,
		Name:        st.Name,
		Email:       st.Email,
		FeesPaid:    st.FeesPaid,
		PaymentDate: null.TimeFromPtr(st.PaymentDate),
		FeeAmount:   st.FeeAmount,
		UserID:      st.UserID,
		CreatedAt:   st.CreatedAt.UTC(),
	}
}

func (r studentRow) student() student.Student {
	st := student.Student{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		FeesPaid:  r.FeesPaid,
		FeeAmount: r.FeeAmount,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.PaymentDate.Valid {
		pd := r.PaymentDate.Time.UTC()
		st.PaymentDate = &pd
	}
	return st
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []studentRow
	q := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByUserID(ctx context.Context, userID string) (student.Student, error) {
	var r studentRow
	q := `SELECT ` + studentColumns + ` FROM students WHERE user_id = $1`
	if err := repo.db.GetContext(ctx, &r, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student by user id")
	}
	return r.student(), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	var r studentRow
	q := `UPDATE students SET name = $1, email = $2 WHERE user_id = $3 RETURNING ` + studentColumns
	if err := repo.db.GetContext(ctx, &r, q, st.Name, st.Email, st.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return r.student(), nil
}

func (repo *studentRepository) MarkStudentPaid(ctx context.Context, userID string, at time.Time) (student.Student, error) {
	var r studentRow
	q := `UPDATE students SET fees_paid = TRUE, payment_date = COALESCE(payment_date, $1)
		WHERE user_id = $2 RETURNING ` + studentColumns
	if err := repo.db.GetContext(ctx, &r, q, at.UTC(), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "marking student paid")
	}
	return r.student(), nil
}

func insertStudent(ctx context.Context, tx *sqlx.Tx, st student.Student) error {
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:id, :name, :email, :fees_paid, :payment_date, :fee_amount, :user_id, :created_at)`
	_, err := tx.NamedExecContext(ctx, q, toStudentRow(st))
	return err
}
