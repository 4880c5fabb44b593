package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core"
)

var errMissingToken = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		body := echo.Map{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				body["error"] = msg
			} else {
				body["error"] = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			body["error"] = origErr.Error()
			if len(origErr.Fields) > 0 {
				body["fields"] = origErr.FieldMap()
			}
		case *core.ConflictError:
			code = http.StatusBadRequest
			body["error"] = origErr.Error()
		case *core.AuthError:
			code = http.StatusUnauthorized
			body["error"] = origErr.Error()
		case *core.NotFoundError:
			code = http.StatusNotFound
			body["error"] = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(code)
			body["error"] = msg
			if ctx.Echo().Debug {
				body["error"] = err.Error()
			}

			args := []interface{}{errors.Wrap(err, msg)}
			if claims, cErr := contextClaims(ctx); cErr == nil {
				args = append(args, claims.Identity())
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
