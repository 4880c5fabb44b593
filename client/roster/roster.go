// Package roster caches the student roster and the logged in user's own record.
// The cache follows the session: it is fetched on login and cleared on logout.
package roster

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/client/session"
	"github.com/trezcool/feeportal/client/store"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
)

// StudentsAPI is the part of the API client the roster depends on.
type StudentsAPI interface {
	ListStudents(ctx context.Context, token string) ([]student.Student, error)
	GetOwnStudent(ctx context.Context, token string) (student.Student, error)
	UpdateOwnStudent(ctx context.Context, token string, patch student.UpdateStudent) (student.Student, error)
	PayOwnStudent(ctx context.Context, token string) (student.Student, error)
}

// Session is what the roster needs from session.Session.
type Session interface {
	State() session.State
	Token() string
	Subscribe(fn func(session.State)) (unsubscribe func())
}

type Roster struct {
	api    StudentsAPI
	sess   Session
	logger core.Logger
	store  *store.Store[State, action]

	ctx    context.Context // parent of background fetches
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	epoch       uint64
	identityID  string
	unsubscribe func()
}

// New returns a roster following sess. Background fetches stop when ctx is done or on Close.
func New(ctx context.Context, api StudentsAPI, sess Session, logger core.Logger) *Roster {
	ctx, cancel := context.WithCancel(ctx)
	r := &Roster{
		api:    api,
		sess:   sess,
		logger: logger,
		store:  store.New(State{}, reduce),
		ctx:    ctx,
		cancel: cancel,
	}
	r.unsubscribe = sess.Subscribe(func(session.State) { r.syncIdentity() })
	r.syncIdentity()
	return r
}

func (r *Roster) State() State { return r.store.State() }

func (r *Roster) Subscribe(fn func(State)) (unsubscribe func()) {
	return r.store.Subscribe(fn)
}

// syncIdentity starts a new epoch whenever the logged in identity changes.
// It always reads the latest session state, so out of order notifications are harmless.
func (r *Roster) syncIdentity() {
	r.mu.Lock()
	var id string
	if ident := r.sess.State().Identity; ident != nil {
		id = ident.ID
	}
	if id == r.identityID {
		r.mu.Unlock()
		return
	}
	r.identityID = id
	r.epoch++
	epoch := r.epoch
	r.mu.Unlock()

	r.store.Dispatch(identityChanged{epoch: epoch, authenticated: id != ""})
	if id != "" {
		r.fetch(epoch)
	}
}

func (r *Roster) currentEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// Refresh re-fetches the roster and the own record of the logged in user, if any.
func (r *Roster) Refresh() {
	r.mu.Lock()
	authenticated, epoch := r.identityID != "", r.epoch
	r.mu.Unlock()
	if authenticated {
		r.fetch(epoch)
	}
}

// fetch loads the roster and the own record concurrently.
func (r *Roster) fetch(epoch uint64) {
	token := r.sess.Token()
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		students, err := r.api.ListStudents(r.ctx, token)
		if err != nil {
			r.logger.Warn("fetching roster", err)
		}
		r.store.Dispatch(rosterLoaded{epoch: epoch, students: students, err: err})
	}()
	go func() {
		defer r.wg.Done()
		own, err := r.api.GetOwnStudent(r.ctx, token)
		if err != nil && !core.IsNotFound(err) {
			r.logger.Warn("fetching own student", err)
		}
		r.store.Dispatch(ownLoaded{epoch: epoch, own: own, err: err})
	}()
}

// Wait blocks until in-flight background fetches are done.
func (r *Roster) Wait() { r.wg.Wait() }

// Close stops following the session and cancels in-flight fetches.
func (r *Roster) Close() {
	r.unsubscribe()
	r.cancel()
	r.wg.Wait()
}

// UpdateOwnRecord saves patch on the server, then caches the record the server returned.
// On failure the cache is left untouched.
func (r *Roster) UpdateOwnRecord(ctx context.Context, patch student.UpdateStudent) error {
	epoch := r.currentEpoch()
	st, err := r.api.UpdateOwnStudent(ctx, r.sess.Token(), patch)
	if err != nil {
		return errors.Wrap(err, "updating own student")
	}
	r.store.Dispatch(recordUpdated{epoch: epoch, record: st})
	return nil
}

// RecordPayment marks the own record as paid on the server, then patches the payment
// fields of the cache with the server's values. On failure the cache is left untouched.
func (r *Roster) RecordPayment(ctx context.Context) (student.Student, error) {
	epoch := r.currentEpoch()
	st, err := r.api.PayOwnStudent(ctx, r.sess.Token())
	if err != nil {
		return student.Student{}, errors.Wrap(err, "recording payment")
	}
	r.store.Dispatch(paymentRecorded{epoch: epoch, record: st})
	return st, nil
}

// LookupByID returns the cached record with the given id.
func (r *Roster) LookupByID(id string) (student.Student, bool) {
	st := r.State()
	for _, s := range st.Roster {
		if s.ID == id {
			return s, true
		}
	}
	if st.Own != nil && st.Own.ID == id {
		return *st.Own, true
	}
	return student.Student{}, false
}

// Search returns the cached students whose name or email contains term (case-insensitive).
func (r *Roster) Search(term string) []student.Student {
	var found []student.Student
	for _, s := range r.State().Roster {
		if s.Matches(term) {
			found = append(found, s)
		}
	}
	return found
}
