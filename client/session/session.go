// Package session keeps track of who is logged in on this client. The token and the
// current user are persisted so that a session survives restarts.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/client/storage"
	"github.com/trezcool/feeportal/client/store"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/user"
)

// AuthAPI is the part of the API client the session depends on.
type AuthAPI interface {
	Signup(ctx context.Context, nu user.NewUser) (user.AuthResult, error)
	Login(ctx context.Context, email, password string) (user.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// State is an immutable snapshot of the session. Identity is nil when logged out.
type State struct {
	Identity *user.Identity
	Loading  bool
}

func (st State) Authenticated() bool { return st.Identity != nil }

type actionKind int

const (
	actionLoading actionKind = iota
	actionAuthenticated
	actionLoggedOut
	actionFailed
)

type action struct {
	kind     actionKind
	identity user.Identity
}

func reduce(st State, a action) State {
	switch a.kind {
	case actionLoading:
		return State{Identity: st.Identity, Loading: true}
	case actionAuthenticated:
		ident := a.identity
		return State{Identity: &ident}
	case actionLoggedOut:
		return State{}
	case actionFailed:
		return State{Identity: st.Identity}
	}
	return st
}

type Session struct {
	api     AuthAPI
	storage storage.Storage
	logger  core.Logger
	store   *store.Store[State, action]

	mu    sync.RWMutex
	token string
}

// New returns a session in the loading state; call Init to restore a persisted session.
func New(api AuthAPI, st storage.Storage, logger core.Logger) *Session {
	return &Session{
		api:     api,
		storage: st,
		logger:  logger,
		store:   store.New(State{Loading: true}, reduce),
	}
}

func (s *Session) State() State { return s.store.State() }

func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.store.Subscribe(fn)
}

// Token returns the persisted token; it is empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Init restores the persisted session. The token is not re-verified: an expired token
// surfaces on the first authenticated call.
func (s *Session) Init(ctx context.Context) {
	token, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		s.logger.Error("restoring session token", err)
		s.store.Dispatch(action{kind: actionLoggedOut})
		return
	}

	var ident user.Identity
	found, err := storage.GetJSON(ctx, s.storage, storage.KeyCurrentUser, &ident)
	if err != nil {
		s.logger.Error("restoring current user", err)
	}
	if len(token) == 0 || !found {
		s.store.Dispatch(action{kind: actionLoggedOut})
		return
	}

	s.setToken(string(token))
	s.store.Dispatch(action{kind: actionAuthenticated, identity: ident})
}

// Login authenticates against the API and persists the session.
// Failures are logged and reported as false.
func (s *Session) Login(ctx context.Context, email, password string) bool {
	s.store.Dispatch(action{kind: actionLoading})

	res, err := s.api.Login(ctx, email, password)
	if err == nil {
		err = s.persist(ctx, res)
	}
	if err != nil {
		s.logger.Error("login failed", errors.Wrap(err, "logging in"))
		s.store.Dispatch(action{kind: actionFailed})
		return false
	}

	s.setToken(res.Token)
	s.store.Dispatch(action{kind: actionAuthenticated, identity: res.User})
	return true
}

// persist stores the token, then the user. A partially persisted session is rolled back.
func (s *Session) persist(ctx context.Context, res user.AuthResult) error {
	if err := s.storage.Set(ctx, storage.KeyToken, []byte(res.Token)); err != nil {
		return errors.Wrap(err, "persisting token")
	}
	if err := storage.SetJSON(ctx, s.storage, storage.KeyCurrentUser, res.User); err != nil {
		if dErr := s.storage.Delete(ctx, storage.KeyToken); dErr != nil {
			s.logger.Error("rolling back token", dErr)
		}
		return errors.Wrap(err, "persisting current user")
	}
	return nil
}

// Signup creates the account. It does not log in: callers must call Login afterwards.
func (s *Session) Signup(ctx context.Context, name, email, password string) error {
	_, err := s.api.Signup(ctx, user.NewUser{Name: name, Email: email, Password: password})
	return errors.Wrap(err, "signing up")
}

// Logout forgets the session locally, then asks the server to revoke the token.
// It is idempotent and never fails: errors are only logged.
func (s *Session) Logout(ctx context.Context) {
	token := s.Token()

	if err := s.storage.Delete(ctx, storage.KeyToken, storage.KeyCurrentUser); err != nil {
		s.logger.Error("clearing persisted session", err)
	}
	s.setToken("")
	s.store.Dispatch(action{kind: actionLoggedOut})

	if token == "" {
		return
	}
	if err := s.api.Logout(ctx, token); err != nil && !core.IsAuth(err) {
		s.logger.Warn("revoking token", err)
	}
}
