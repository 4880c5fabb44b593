package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core/user"
)

const contextClaimsKey = "claims"

// authMiddleware verifies the bearer token once and stores its user.Claims in the context.
func authMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx.Request())
			if !ok {
				return errMissingToken
			}
			claims, err := svc.Verify(ctx.Request().Context(), token)
			if err != nil {
				return errors.Wrap(err, "verifying token")
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func contextClaims(ctx echo.Context) (user.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(user.Claims); ok {
		return claims, nil
	}
	return user.Claims{}, errMissingToken
}
