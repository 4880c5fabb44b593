package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/feeportal/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		students = append(students, copyStudent(st))
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := repo.indexOf(userID); i >= 0 {
		return copyStudent(repo.db.students[i]), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := repo.indexOf(st.UserID)
	if i < 0 {
		return student.Student{}, student.ErrNotFound
	}
	// only name and email are writable
	repo.db.students[i].Name = st.Name
	repo.db.students[i].Email = st.Email
	return copyStudent(repo.db.students[i]), nil
}

func (repo *studentRepository) MarkStudentPaid(_ context.Context, userID string, at time.Time) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := repo.indexOf(userID)
	if i < 0 {
		return student.Student{}, student.ErrNotFound
	}
	st := &repo.db.students[i]
	st.FeesPaid = true
	if st.PaymentDate == nil {
		at = at.UTC()
		st.PaymentDate = &at
	}
	return copyStudent(*st), nil
}

// indexOf must be called with the lock held.
func (repo *studentRepository) indexOf(userID string) int {
	for i, st := range repo.db.students {
		if st.UserID == userID {
			return i
		}
	}
	return -1
}

func copyStudent(st student.Student) student.Student {
	if st.PaymentDate != nil {
		pd := *st.PaymentDate
		st.PaymentDate = &pd
	}
	return st
}
