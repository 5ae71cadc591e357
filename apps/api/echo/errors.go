package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/enrollment"
	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrCodes maps domain sentinel errors to HTTP status codes. Gate
// rejections (closed window, full program, quota, bad transition) are
// conflicts: the request was well-formed but the system state refuses it.
var domainErrCodes = map[error]int{
	user.ErrNotFound:          http.StatusNotFound,
	family.ErrNotFound:        http.StatusNotFound,
	family.ErrNoParentProfile: http.StatusNotFound,
	program.ErrNotFound:       http.StatusNotFound,
	program.ErrSessionNotFound: http.StatusNotFound,
	enrollment.ErrNotFound:    http.StatusNotFound,
	participation.ErrNotFound: http.StatusNotFound,

	program.ErrRegistrationNotOpen:     http.StatusConflict,
	program.ErrNoSpotsAvailable:        http.StatusConflict,
	enrollment.ErrBookingLimitExceeded: http.StatusConflict,
	enrollment.ErrAlreadyCancelled:     http.StatusConflict,
	participation.ErrInvalidTransition: http.StatusConflict,
	family.ErrProfileExists:            http.StatusConflict,

	enrollment.ErrInvalidPaymentMethod: http.StatusBadRequest,
	enrollment.ErrChildNotSelected:     http.StatusBadRequest,
	family.ErrUnknownTier:              http.StatusBadRequest,

	participation.ErrActorNotAllowed: http.StatusForbidden,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := domainErrCodes[origErr]; ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			if logger != nil {
				logger.Error(msg, errors.Wrap(err, msg), usr)
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
