package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
	"github.com/trezcool/feeportal/services/export"
)

func Test_studentApi_list(t *testing.T) {
	s, app := newTestServer()
	_, ada := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	_, bob := s.CreateUser(t, "Bob", "bob@test.cd", "pw123456")
	token := s.Login(t, "bob@test.cd", "pw123456")

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/api/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "all students", path: "/api/students", token: token, wantCode: http.StatusOK, wantData: marchallList(t, ada, bob)},
		{name: "trailing slash", path: "/api/students/", token: token, wantCode: http.StatusOK, wantData: marchallList(t, ada, bob)},
	})
}

func Test_studentApi_retrieveOwn(t *testing.T) {
	s, app := newTestServer()
	_, ada := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	token := s.Login(t, "ada@test.cd", "pw123456")

	// a valid token whose user has no student record
	orphanToken, err := user.NewTokenIssuer(s.Conf.SecretKey, time.Hour, s.Conf.AppName).Issue(user.User{ID: uuid.NewString()})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/api/students/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own record", path: "/api/students/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, ada)},
		{
			name: "not found", path: "/api/students/me", token: orphanToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()}),
		},
	})
}

func Test_studentApi_updateOwn(t *testing.T) {
	s, app := newTestServer()
	_, ada := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	_, bob := s.CreateUser(t, "Bob", "bob@test.cd", "pw123456")
	token := s.Login(t, "ada@test.cd", "pw123456")

	renamed := ada
	renamed.Name = "Ada Lovelace"
	moved := renamed
	moved.Email = "ada.l@test.cd"

	runHTTPTests(t, app, []httpTest{
		{
			name: "auth required", method: http.MethodPut, path: "/api/students/me", body: []byte(`{"name":"X"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "blank name", method: http.MethodPut, path: "/api/students/me", token: token, body: []byte(`{"name":"  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid profile", Fields: map[string]string{"name": "this field cannot be blank"}}),
		},
		{
			name: "invalid email", method: http.MethodPut, path: "/api/students/me", token: token, body: []byte(`{"email":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid profile", Fields: map[string]string{"email": "email must be a valid email address"}}),
		},
		{
			name: "name", method: http.MethodPut, path: "/api/students/me", token: token, body: []byte(`{"name":" Ada Lovelace "}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, renamed),
		},
		{
			name: "email", method: http.MethodPut, path: "/api/students/me", token: token, body: []byte(`{"email":"ADA.L@test.cd"}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, moved),
		},
		{
			name: "fee fields are ignored", method: http.MethodPut, path: "/api/students/me", token: token,
			body: []byte(`{"feesPaid":true,"feeAmount":1}`), wantCode: http.StatusOK, wantData: marchallObj(t, moved),
		},
		// only the caller's own record changed
		{name: "roster", path: "/api/students", token: token, wantCode: http.StatusOK, wantData: marchallList(t, moved, bob)},
	})
}

func Test_studentApi_payOwn(t *testing.T) {
	s, app := newTestServer()
	s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	token := s.Login(t, "ada@test.cd", "pw123456")

	rec := serve(app, httpTest{method: http.MethodPost, path: "/api/students/me/pay", token: token, body: []byte(`{}`)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first student.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.FeesPaid)
	require.NotNil(t, first.PaymentDate)
	assert.WithinDuration(t, time.Now(), *first.PaymentDate, time.Minute)

	// paying again keeps the first payment date
	rec = serve(app, httpTest{method: http.MethodPost, path: "/api/students/me/pay", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var second student.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, first.PaymentDate.Equal(*second.PaymentDate))

	rec = serve(app, httpTest{method: http.MethodPost, path: "/api/students/me/pay"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_studentApi_export(t *testing.T) {
	s, app := newTestServer()
	s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	token := s.Login(t, "ada@test.cd", "pw123456")

	rec := serve(app, httpTest{path: "/api/students/export", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exportsvc.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "roster.xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = serve(app, httpTest{path: "/api/students/export"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
