package roster

import (
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
)

type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Missing // the server has no record for the logged in user
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Missing:
		return "missing"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Sync describes the outcome of the last fetch of a piece of the cache.
type Sync struct {
	Status Status
	Err    error
}

// State is an immutable snapshot of the cache.
type State struct {
	Roster     []student.Student
	Own        *student.Student
	RosterSync Sync
	OwnSync    Sync

	epoch uint64 // bumped on every identity change; older results are dropped
}

type action interface {
	apply(st State) State
}

type identityChanged struct {
	epoch         uint64
	authenticated bool
}

func (a identityChanged) apply(st State) State {
	if a.epoch < st.epoch {
		return st
	}
	next := State{epoch: a.epoch}
	if a.authenticated {
		next.RosterSync = Sync{Status: Loading}
		next.OwnSync = Sync{Status: Loading}
	}
	return next
}

type rosterLoaded struct {
	epoch    uint64
	students []student.Student
	err      error
}

func (a rosterLoaded) apply(st State) State {
	if a.epoch != st.epoch {
		return st
	}
	if a.err != nil {
		// keep the stale roster
		st.RosterSync = Sync{Status: Failed, Err: a.err}
		return st
	}
	st.Roster = a.students
	st.RosterSync = Sync{Status: Ready}
	return st
}

type ownLoaded struct {
	epoch uint64
	own   student.Student
	err   error
}

func (a ownLoaded) apply(st State) State {
	if a.epoch != st.epoch {
		return st
	}
	switch {
	case a.err == nil:
		own := a.own
		st.Own = &own
		st.OwnSync = Sync{Status: Ready}
	case core.IsNotFound(a.err):
		st.Own = nil
		st.OwnSync = Sync{Status: Missing, Err: a.err}
	default:
		st.Own = nil
		st.OwnSync = Sync{Status: Failed, Err: a.err}
	}
	return st
}

// recordUpdated replaces the own record, and its roster entry, with the server's version.
type recordUpdated struct {
	epoch  uint64
	record student.Student
}

func (a recordUpdated) apply(st State) State {
	if a.epoch != st.epoch {
		return st
	}
	return patchRecord(st, a.record.ID, func(student.Student) student.Student { return a.record })
}

// paymentRecorded only patches the payment fields; any other field keeps its cached value.
type paymentRecorded struct {
	epoch  uint64
	record student.Student
}

func (a paymentRecorded) apply(st State) State {
	if a.epoch != st.epoch {
		return st
	}
	return patchRecord(st, a.record.ID, func(cached student.Student) student.Student {
		cached.FeesPaid = a.record.FeesPaid
		cached.PaymentDate = a.record.PaymentDate
		return cached
	})
}

// patchRecord applies fn to the own record and to the roster entry with the given id,
// copying whatever it changes.
func patchRecord(st State, id string, fn func(student.Student) student.Student) State {
	if st.Own != nil && st.Own.ID == id {
		own := fn(*st.Own)
		st.Own = &own
	}
	for i := range st.Roster {
		if st.Roster[i].ID == id {
			roster := make([]student.Student, len(st.Roster))
			copy(roster, st.Roster)
			roster[i] = fn(roster[i])
			st.Roster = roster
			break
		}
	}
	return st
}

func reduce(st State, a action) State { return a.apply(st) }
