// Package testutil wires the in-process stack used by tests across packages.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http/httptest"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/client/storage"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
	"github.com/trezcool/feeportal/services/email"
	"github.com/trezcool/feeportal/services/logger"
	"github.com/trezcool/feeportal/storage/cache"
	"github.com/trezcool/feeportal/storage/database/inmem"
)

// Config returns a configuration suitable for tests, independent of the environment.
func Config() *core.Config {
	conf := &core.Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "Fee Portal",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "Fee Portal", Address: "noreply@test.cd"},
	}
	conf.Server.JWTExpirationDelta = 24 * time.Hour
	conf.Server.AllowOrigins = []string{"*"}
	conf.Database.InMemory = true
	conf.Fees.DefaultAmount = 5000
	conf.Payment.Latency = 10 * time.Millisecond
	conf.Payment.DisplayDelay = 10 * time.Millisecond
	conf.Payment.SuccessRate = 0.9
	conf.Client.RequestTimeout = 5 * time.Second
	return conf
}

// NewValidator returns a validator with the core and user validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Stack is the in-memory server side: repositories, services and their collaborators.
type Stack struct {
	Conf        *core.Config
	DB          *inmemdb.DB
	UserRepo    user.Repository
	StudentRepo student.Repository
	Revoker     *cache.MemoryRevoker
	Mail        *emailsvc.ConsoleService
	Validate    *validator.Validate
	Translator  ut.Translator
	UserSvc     *user.Service
	StudentSvc  *student.Service
}

func NewStack() *Stack {
	conf := Config()
	db := inmemdb.Open()
	validate, translator := NewValidator()
	s := &Stack{
		Conf:        conf,
		DB:          db,
		UserRepo:    inmemdb.NewUserRepository(db),
		StudentRepo: inmemdb.NewStudentRepository(db),
		Revoker:     cache.NewMemoryRevoker(),
		Mail:        emailsvc.NewConsoleServiceMock(conf),
		Validate:    validate,
		Translator:  translator,
	}
	s.UserSvc = user.NewService(s.UserRepo, s.Revoker, validate, translator, conf)
	s.StudentSvc = student.NewService(s.StudentRepo, s.Mail, validate, translator, conf)
	return s
}

// CreateUser signs up a user through the service and returns it with its student record.
func (s *Stack) CreateUser(t *testing.T, name, email, pwd string) (user.User, student.Student) {
	t.Helper()
	usr, st, err := s.UserSvc.Create(context.Background(), user.NewUser{Name: name, Email: email, Password: pwd})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr, st
}

// Login returns a valid token for the given credentials.
func (s *Stack) Login(t *testing.T, email, pwd string) string {
	t.Helper()
	res, err := s.UserSvc.Login(context.Background(), user.LoginRequest{Email: email, Password: pwd})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	return res.Token
}

// StartServer serves the API of a fresh in-memory stack over a local HTTP listener.
func StartServer(t *testing.T) (*Stack, *httptest.Server) {
	t.Helper()
	s := NewStack()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), s.Conf)
	srv := httptest.NewServer(echoapi.NewServer(s.Conf, logger, s.DB, s.UserSvc, s.StudentSvc))
	t.Cleanup(srv.Close)
	return s, srv
}

// NewLogger returns a logger writing to the returned buffer.
// Read the buffer only once every goroutine that may log is done.
func NewLogger() (*logsvc.RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logsvc.NewRollbarLogger(log.New(&buf, "", 0), Config()), &buf
}

// OpenStorage returns a client local store backed by a temporary SQLite file.
func OpenStorage(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	st, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("OpenStorage() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
