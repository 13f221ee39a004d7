package echodash

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/services/trainapi"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(deps ServerDeps, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message

		case *session.AuthError:
			code = http.StatusBadRequest
			message = origErr.Message

		case *trainapi.APIError:
			code = origErr.StatusCode
			if origErr.Fields != nil {
				message = echo.Map{"error": origErr.Message, "fields": origErr.Fields}
			} else {
				message = origErr.Message
			}

		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(deps.Translator)
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
			// session-fatal: the gateway has already torn the session down;
			// hard-navigate to the login surface matching the current path
			if errors.Cause(err) == trainapi.ErrUnauthenticated {
				expireSessionCookie(ctx, deps.Conf)
				if !ctx.Response().Committed {
					if rErr := ctx.Redirect(http.StatusFound, loginSurfaceForPath(ctx.Request().URL.Path)); rErr != nil {
						ctx.Echo().Logger.Error(rErr)
					}
				}
				return
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logArgs := []interface{}{errors.Wrap(err, msg)}
			if store, sErr := getContextStore(ctx); sErr == nil {
				if ident := store.Current().Identity(); ident != nil {
					logArgs = append(logArgs, *ident)
				}
			}
			deps.Logger.Error(msg, logArgs...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
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
