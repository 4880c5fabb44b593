// Package payment simulates a card payment of the logged in student's fees.
// No gateway is involved: after a fixed latency the attempt succeeds with a configurable
// probability, and only then is the payment recorded on the server.
package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/client/roster"
	"github.com/trezcool/feeportal/client/store"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
)

var (
	ErrAlreadyPaid = errors.New("fees have already been paid")
	ErrNotLoaded   = errors.New("student record not loaded")
	ErrNotIdle     = errors.New("a payment attempt is in progress or awaiting retry")
	ErrDeclined    = errors.New("payment declined")
)

type Status int

const (
	Idle Status = iota
	Validating
	Processing
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Validating:
		return "validating"
	case Processing:
		return "processing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "idle"
}

// State is an immutable snapshot of the current attempt.
type State struct {
	Status      Status
	FieldErrors map[string]string // set when the last submission was rejected
	Err         error             // why the attempt failed
	Record      *student.Student  // the paid record, once succeeded
}

type transition struct {
	to          Status
	fieldErrors map[string]string
	err         error
	record      *student.Student
}

func reduce(_ State, t transition) State {
	return State{Status: t.to, FieldErrors: t.fieldErrors, Err: t.err, Record: t.record}
}

// Recorder is what the simulator needs from roster.Roster.
type Recorder interface {
	State() roster.State
	RecordPayment(ctx context.Context) (student.Student, error)
}

type Options struct {
	Latency      time.Duration
	DisplayDelay time.Duration
	SuccessRate  float64
	// Rand returns a uniform draw in [0, 1). Defaults to math/rand.
	Rand func() float64
	// OnSucceeded is called DisplayDelay after a successful attempt.
	OnSucceeded func(student.Student)
}

func OptionsFromConfig(conf *core.Config) Options {
	return Options{
		Latency:      conf.Payment.Latency,
		DisplayDelay: conf.Payment.DisplayDelay,
		SuccessRate:  conf.Payment.SuccessRate,
	}
}

type Simulator struct {
	recorder   Recorder
	logger     core.Logger
	opts       Options
	validate   *validator.Validate
	translator ut.Translator
	store      *store.Store[State, transition]

	mu     sync.Mutex
	phase  Status // the status the machine is moving to; guards concurrent submissions
	timers sync.WaitGroup
	timer  *time.Timer
}

func New(recorder Recorder, logger core.Logger, opts Options) *Simulator {
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	validate, translator := NewValidator()
	return &Simulator{
		recorder:   recorder,
		logger:     logger,
		opts:       opts,
		validate:   validate,
		translator: translator,
		store:      store.New(State{}, reduce),
	}
}

func (s *Simulator) State() State { return s.store.State() }

func (s *Simulator) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.store.Subscribe(fn)
}

// FieldErrors returns the messages of the last rejected submission, keyed by field.
func (s *Simulator) FieldErrors() map[string]string { return s.State().FieldErrors }

// Submit runs one attempt to completion and returns its final state.
// Outcomes (Succeeded, Failed) are not errors; a rejected form, a guard or ctx are.
func (s *Simulator) Submit(ctx context.Context, form Form) (State, error) {
	if err := s.begin(); err != nil {
		return s.State(), err
	}

	if err := form.Validate(s.validate, s.translator); err != nil {
		var fieldErrs map[string]string
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			fieldErrs = vErr.FieldMap()
		}
		s.move(transition{to: Idle, fieldErrors: fieldErrs})
		return s.State(), err
	}

	s.move(transition{to: Processing})
	select {
	case <-ctx.Done():
		s.move(transition{to: Idle})
		return s.State(), errors.Wrap(ctx.Err(), "processing payment")
	case <-time.After(s.opts.Latency):
	}

	if s.opts.Rand() >= s.opts.SuccessRate {
		s.move(transition{to: Failed, err: ErrDeclined})
		return s.State(), nil
	}

	rec, err := s.recorder.RecordPayment(ctx)
	if err != nil {
		s.logger.Error("recording payment", err)
		s.move(transition{to: Failed, err: err})
		return s.State(), nil
	}
	s.move(transition{to: Succeeded, record: &rec})
	s.scheduleSucceeded(rec)
	return s.State(), nil
}

// begin moves Idle to Validating, once the guards passed.
func (s *Simulator) begin() error {
	own := s.recorder.State().Own
	if own == nil {
		return ErrNotLoaded
	}
	if own.FeesPaid {
		return ErrAlreadyPaid
	}

	s.mu.Lock()
	switch s.phase {
	case Idle:
	case Succeeded:
		s.mu.Unlock()
		return ErrAlreadyPaid
	default:
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.phase = Validating
	s.mu.Unlock()

	s.store.Dispatch(transition{to: Validating})
	return nil
}

// move records the next phase, then notifies listeners outside the lock.
func (s *Simulator) move(t transition) {
	s.mu.Lock()
	s.phase = t.to
	s.mu.Unlock()
	s.store.Dispatch(t)
}

func (s *Simulator) scheduleSucceeded(rec student.Student) {
	if s.opts.OnSucceeded == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers.Add(1)
	s.timer = time.AfterFunc(s.opts.DisplayDelay, func() {
		defer s.timers.Done()
		s.opts.OnSucceeded(rec)
	})
}

// Retry moves a failed attempt back to Idle. It reports whether it did.
func (s *Simulator) Retry() bool {
	s.mu.Lock()
	if s.phase != Failed {
		s.mu.Unlock()
		return false
	}
	s.phase = Idle
	s.mu.Unlock()

	s.store.Dispatch(transition{to: Idle})
	return true
}

// Wait blocks until the pending OnSucceeded call, if any, has run.
func (s *Simulator) Wait() { s.timers.Wait() }

// Close cancels the pending OnSucceeded call, if any.
func (s *Simulator) Close() {
	s.mu.Lock()
	if s.timer != nil && s.timer.Stop() {
		s.timers.Done()
	}
	s.timer = nil
	s.mu.Unlock()
}
