package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/feeportal/core"
)

// Student is the fee-bearing profile owned 1:1 by a user.User.
type Student struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	FeesPaid    bool       `json:"feesPaid"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"` // UTC; set iff FeesPaid
	FeeAmount   int64      `json:"feeAmount"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"` // UTC
}

// NewForUser returns the unpaid Student linked to a freshly created user.
func NewForUser(userID, name, email string, feeAmount int64, createdAt time.Time) Student {
	return Student{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		FeeAmount: feeAmount,
		UserID:    userID,
		CreatedAt: createdAt,
	}
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// nil fields are left untouched.
type UpdateStudent struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank"`
	Email *string `json:"email,omitempty" validate:"omitempty,notblank,email"`
}

func (us *UpdateStudent) IsEmpty() bool { return us.Name == nil && us.Email == nil }

func (us *UpdateStudent) Clean() {
	if us.Name != nil {
		name := core.CleanString(*us.Name)
		us.Name = &name
	}
	if us.Email != nil {
		email := core.CleanString(*us.Email, true /* lower */)
		us.Email = &email
	}
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Clean()
	return validate.Struct(us)
}

// Apply returns a copy of st with the set fields of us.
func (us UpdateStudent) Apply(st Student) Student {
	if us.Name != nil {
		st.Name = *us.Name
	}
	if us.Email != nil {
		st.Email = *us.Email
	}
	return st
}

// Matches reports whether term is found (case-insensitively) in the Student's name or email.
func (st Student) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(st.Name), term) || strings.Contains(strings.ToLower(st.Email), term)
}
