package inmemdb

import (
	"context"

	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, st student.Student) (user.User, student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, student.Student{}, user.ErrEmailExists
		}
	}
	repo.db.users = append(repo.db.users, usr)
	repo.db.students = append(repo.db.students, st)
	return usr, st, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	return repo.find(func(u user.User) bool { return u.ID == id })
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return repo.find(func(u user.User) bool { return u.Email == email })
}

func (repo *userRepository) UpdateUserPassword(_ context.Context, id string, hash []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.users {
		if repo.db.users[i].ID == id {
			repo.db.users[i].PasswordHash = append([]byte(nil), hash...)
			return nil
		}
	}
	return user.ErrNotFound
}

func (repo *userRepository) find(match func(user.User) bool) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}
