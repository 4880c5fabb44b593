package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/client/api"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
	"github.com/trezcool/feeportal/tests"
)

const pwd = "pw123456"

func newClient(t *testing.T) (*testutil.Stack, *api.Client) {
	s, srv := testutil.StartServer(t)
	return s, api.New(srv.URL+"/", 5*time.Second, srv.Client())
}

func TestClient_SignupLoginLogout(t *testing.T) {
	ctx := context.Background()
	_, c := newClient(t)

	res, err := c.Signup(ctx, user.NewUser{Name: "Jane Doe", Email: "Jane@Example.com", Password: pwd})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "jane@example.com", res.User.Email)

	res, err = c.Login(ctx, "jane@example.com", pwd)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.User.Name)

	st, err := c.GetOwnStudent(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, st.UserID)
	assert.False(t, st.FeesPaid)

	require.NoError(t, c.Logout(ctx, res.Token))
	_, err = c.GetOwnStudent(ctx, res.Token)
	assert.True(t, core.IsAuth(err), "revoked token: %v", err)
}

func TestClient_errorMapping(t *testing.T) {
	ctx := context.Background()
	s, c := newClient(t)
	s.CreateUser(t, "Ada", "ada@test.cd", pwd)

	_, err := c.Signup(ctx, user.NewUser{Name: "Bob", Email: "bob", Password: pwd})
	require.True(t, core.IsValidation(err), "got %v", err)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "invalid signup data", vErr.Error())
	assert.Equal(t, map[string]string{"email": "email must be a valid email address"}, vErr.FieldMap())

	_, err = c.Signup(ctx, user.NewUser{Name: "Ada", Email: "ada@test.cd", Password: pwd})
	assert.True(t, core.IsValidation(err), "duplicate email: %v", err)
	assert.EqualError(t, err, user.ErrEmailExists.Error())

	_, err = c.Login(ctx, "ada@test.cd", "wrong-password")
	assert.True(t, core.IsAuth(err))
	assert.EqualError(t, err, user.ErrInvalidCredentials.Error())

	_, err = c.ListStudents(ctx, "not-a-token")
	assert.True(t, core.IsAuth(err))
}

func TestClient_emptyTokenSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()
	c := api.New(srv.URL, time.Second, srv.Client())
	ctx := context.Background()

	_, err := c.ListStudents(ctx, "")
	assert.ErrorIs(t, err, api.ErrNoToken)
	_, err = c.GetOwnStudent(ctx, "")
	assert.ErrorIs(t, err, api.ErrNoToken)
	_, err = c.UpdateOwnStudent(ctx, "", student.UpdateStudent{})
	assert.ErrorIs(t, err, api.ErrNoToken)
	_, err = c.PayOwnStudent(ctx, "")
	assert.ErrorIs(t, err, api.ErrNoToken)
	assert.ErrorIs(t, c.Logout(ctx, ""), api.ErrNoToken)
	assert.Zero(t, calls)
}

func TestClient_students(t *testing.T) {
	ctx := context.Background()
	s, c := newClient(t)
	s.CreateUser(t, "Ada", "ada@test.cd", pwd)
	s.CreateUser(t, "Bob", "bob@test.cd", pwd)
	token := s.Login(t, "bob@test.cd", pwd)

	students, err := c.ListStudents(ctx, token)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	name := "Bobby"
	st, err := c.UpdateOwnStudent(ctx, token, student.UpdateStudent{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bobby", st.Name)
	assert.Equal(t, "bob@test.cd", st.Email)

	blank := "  "
	_, err = c.UpdateOwnStudent(ctx, token, student.UpdateStudent{Name: &blank})
	assert.True(t, core.IsValidation(err))

	st, err = c.PayOwnStudent(ctx, token)
	require.NoError(t, err)
	assert.True(t, st.FeesPaid)
	require.NotNil(t, st.PaymentDate)

	// first payment date wins
	again, err := c.PayOwnStudent(ctx, token)
	require.NoError(t, err)
	assert.True(t, st.PaymentDate.Equal(*again.PaymentDate))

	xlsx, err := c.ExportRoster(ctx, token)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")), "xlsx files are zip archives")
}

func TestClient_Health(t *testing.T) {
	ctx := context.Background()
	s, c := newClient(t)

	hs, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.HealthStatus{Status: "ok", DB: "connected"}, hs)

	s.DB.SetPingError(assert.AnError)
	hs, err = c.Health(ctx)
	assert.True(t, core.IsTransport(err))
	assert.Equal(t, "error", hs.Status)
	assert.Equal(t, "disconnected", hs.DB)
}

func TestClient_transportFailures(t *testing.T) {
	ctx := context.Background()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()
	_, err := api.New(slow.URL, 20*time.Millisecond, slow.Client()).ListStudents(ctx, "token")
	assert.True(t, core.IsTransport(err), "timeout: %v", err)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	_, err = api.New(broken.URL, time.Second, broken.Client()).Login(ctx, "a@b.cd", pwd)
	assert.True(t, core.IsTransport(err), "5xx: %v", err)

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()
	_, err = api.New(url, time.Second, nil).Login(ctx, "a@b.cd", pwd)
	assert.True(t, core.IsTransport(err), "unreachable: %v", err)
}
