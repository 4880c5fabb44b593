package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
)

type (
	// DB keeps users and students in insertion order, guarded by a single lock
	// so that a user and its student are created atomically.
	DB struct {
		mutex    sync.RWMutex
		users    []user.User
		students []student.Student
		pingErr  error
	}
)

func Open() *DB {
	return &DB{}
}

func (db *DB) PingContext(ctx context.Context) error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.pingErr
}

// SetPingError makes PingContext fail with err (nil restores it).
func (db *DB) SetPingError(err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.pingErr = err
}
