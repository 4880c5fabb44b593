package user

import (
	"context"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = core.NewConflictError("a user with this email already exists")
	ErrInvalidCredentials = core.NewAuthError("invalid credentials")
	ErrInvalidToken       = core.NewAuthError("invalid or expired token")

	dummyHashOnce sync.Once
	dummyHash     []byte
)

type (
	Repository interface {
		// CreateUser saves the User and its Student in a single transaction.
		// It returns ErrEmailExists if the email is already registered.
		CreateUser(ctx context.Context, usr User, st student.Student) (User, student.Student, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUserPassword(ctx context.Context, id string, hash []byte) error
	}

	// Revoker keeps track of logged out tokens until they expire.
	Revoker interface {
		Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
		IsRevoked(ctx context.Context, tokenID string) (bool, error)
	}

	Service struct {
		repo       Repository
		revoker    Revoker
		tokens     *TokenIssuer
		validate   *validator.Validate
		translator ut.Translator
		feeAmount  int64
	}
)

func NewService(
	repo Repository,
	revoker Revoker,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		revoker:    revoker,
		tokens:     NewTokenIssuer(conf.SecretKey, conf.Server.JWTExpirationDelta, conf.AppName),
		validate:   validate,
		translator: translator,
		feeAmount:  conf.Fees.DefaultAmount,
	}
}

// Create registers a new User along with its unpaid Student record.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, student.Student, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, student.Student{}, core.TranslateValidationErrors(err, svc.translator, "invalid signup data")
	}

	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return User{}, student.Student{}, ErrEmailExists
	} else if !core.IsNotFound(err) {
		return User{}, student.Student{}, errors.Wrap(err, "finding user by email")
	}

	usr := User{
		ID:        newID(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      RoleStudent,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, student.Student{}, errors.Wrap(err, "hashing password")
	}
	st := student.NewForUser(usr.ID, usr.Name, usr.Email, svc.feeAmount, usr.CreatedAt)
	return svc.repo.CreateUser(ctx, usr, st)
}

// Signup creates the User and issues a token for it.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (AuthResult, error) {
	usr, _, err := svc.Create(ctx, nu)
	if err != nil {
		return AuthResult{}, err
	}
	return svc.authResult(usr)
}

// Login checks the credentials and issues a token.
// Unknown emails and wrong passwords are indistinguishable, in outcome and in cost.
func (svc *Service) Login(ctx context.Context, lr LoginRequest) (AuthResult, error) {
	if err := lr.Validate(svc.validate); err != nil {
		return AuthResult{}, core.TranslateValidationErrors(err, svc.translator, "email and password are required")
	}

	usr, err := svc.repo.GetUserByEmail(ctx, lr.Email)
	if err != nil {
		if core.IsNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(getDummyHash(), []byte(lr.Password))
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(lr.Password); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return svc.authResult(usr)
}

// Verify returns the claims of a valid, unexpired and unrevoked token.
func (svc *Service) Verify(ctx context.Context, token string) (Claims, error) {
	claims, err := svc.tokens.Parse(token)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	revoked, err := svc.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, errors.Wrap(err, "checking token revocation")
	}
	if revoked {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the token the claims were read from.
func (svc *Service) Logout(ctx context.Context, claims Claims) error {
	ttl := claims.TTL()
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(svc.revoker.Revoke(ctx, claims.ID, ttl), "revoking token")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// ResetPassword replaces the password of the user with the given email, under the signup password policy.
// Tokens issued before the reset stay valid until they expire.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	nu := NewUser{Name: usr.Name, Email: usr.Email, Password: pwd}
	if err = svc.validate.Struct(nu); err != nil {
		return core.TranslateValidationErrors(err, svc.translator, "invalid password")
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUserPassword(ctx, usr.ID, usr.PasswordHash)
}

func (svc *Service) authResult(usr User) (AuthResult, error) {
	token, err := svc.tokens.Issue(usr)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: usr.Identity()}, nil
}

func getDummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}
