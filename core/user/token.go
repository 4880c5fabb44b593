package user

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var NowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
// Subject is the User ID and ID (jti) identifies the token for revocation.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c Claims) Identity() Identity {
	return Identity{ID: c.Subject, Name: c.Name, Email: c.Email}
}

// TTL returns how long the token remains valid.
func (c Claims) TTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if ttl := c.ExpiresAt.Sub(NowFunc()); ttl > 0 {
		return ttl
	}
	return 0
}

// TokenIssuer signs and verifies HS256 tokens with a single secret key.
type TokenIssuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
}

func NewTokenIssuer(secretKey string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{key: []byte(secretKey), ttl: ttl, issuer: issuer}
}

func (ti *TokenIssuer) Claims(usr User) Claims {
	now := NowFunc()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Name:  usr.Name,
		Email: usr.Email,
	}
}

// Issue generates a signed JWT token string for the user.
func (ti *TokenIssuer) Issue(usr User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ti.Claims(usr))
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse verifies the token signature, algorithm and expiry and returns its claims.
func (ti *TokenIssuer) Parse(tokenStr string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(
		tokenStr, &claims,
		func(*jwt.Token) (interface{}, error) { return ti.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowFunc),
	)
	if err != nil {
		return Claims{}, err
	}
	if !tok.Valid || claims.Subject == "" || claims.ID == "" {
		return Claims{}, errors.New("invalid claims")
	}
	return claims, nil
}
