package inmemdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
)

func TestDB_PingContext(t *testing.T) {
	db := Open()
	assert.NoError(t, db.PingContext(context.Background()))

	down := errors.New("connection refused")
	db.SetPingError(down)
	assert.ErrorIs(t, db.PingContext(context.Background()), down)

	db.SetPingError(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, db.PingContext(ctx), context.Canceled)
}

func TestStudentRepository_copies(t *testing.T) {
	ctx := context.Background()
	db := Open()
	users, students := NewUserRepository(db), NewStudentRepository(db)

	_, _, err := users.CreateUser(ctx, user.User{ID: "u1", Email: "a@test.cd"}, student.Student{ID: "s1", UserID: "u1"})
	require.NoError(t, err)

	at := time.Now().UTC()
	paid, err := students.MarkStudentPaid(ctx, "u1", at)
	require.NoError(t, err)

	// mutating a returned record must not leak into the store
	*paid.PaymentDate = at.Add(time.Hour)
	stored, err := students.GetStudentByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, at.Equal(*stored.PaymentDate))

	_, _, err = users.CreateUser(ctx, user.User{ID: "u2", Email: "a@test.cd"}, student.Student{ID: "s2", UserID: "u2"})
	assert.ErrorIs(t, err, user.ErrEmailExists)
	all, _ := students.QueryAllStudents(ctx)
	assert.Len(t, all, 1)
}

func TestUserRepository_UpdateUserPassword(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(Open())
	_, _, err := users.CreateUser(ctx, user.User{ID: "u1", Email: "a@test.cd", PasswordHash: []byte("old")}, student.Student{ID: "s1", UserID: "u1"})
	require.NoError(t, err)

	hash := []byte("new")
	require.NoError(t, users.UpdateUserPassword(ctx, "u1", hash))
	hash[0] = 'x' // the store keeps its own copy
	got, err := users.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.PasswordHash)

	assert.ErrorIs(t, users.UpdateUserPassword(ctx, "u2", hash), user.ErrNotFound)
}
