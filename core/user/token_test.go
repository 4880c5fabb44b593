package user

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	ti := NewTokenIssuer("secret", 24*time.Hour, "Fee Portal")
	usr := User{ID: "u1", Name: "Ada", Email: "ada@test.cd"}

	token, err := ti.Issue(usr)
	require.NoError(t, err)

	claims, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Fee Portal", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, Identity{ID: "u1", Name: "Ada", Email: "ada@test.cd"}, claims.Identity())
	assert.InDelta(t, (24 * time.Hour).Seconds(), claims.TTL().Seconds(), 5)

	// every token has its own id
	token2, _ := ti.Issue(usr)
	claims2, err := ti.Parse(token2)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, claims2.ID)
}

func TestTokenIssuer_Parse_rejects(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour, "Fee Portal")
	usr := User{ID: "u1"}

	// HS512 with the right key
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, ti.Claims(usr)).SignedString([]byte("secret"))
	require.NoError(t, err)

	// alg=none
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, ti.Claims(usr)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	// no expiry
	noExp := ti.Claims(usr)
	noExp.ExpiresAt = nil
	noExpToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte("secret"))
	require.NoError(t, err)

	// no subject
	noSub := ti.Claims(User{})
	noSubToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noSub).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"HS512":      hs512,
		"none":       none,
		"no expiry":  noExpToken,
		"no subject": noSubToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ti.Parse(token)
			assert.Error(t, err)
		})
	}
}

func TestClaims_TTL(t *testing.T) {
	assert.Zero(t, Claims{}.TTL())

	past := Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}
	assert.Zero(t, past.TTL())
}
