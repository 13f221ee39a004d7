package echodash

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/session"
)

// Guard states; checking is the only initial state, the rest are terminal for
// a given request and recomputed on every request, never cached.
const (
	GuardChecking             GuardState = "checking"
	GuardRedirectLogin        GuardState = "redirect-login"
	GuardRedirectUnauthorized GuardState = "redirect-unauthorized"
	GuardAllowed              GuardState = "allowed"
)

const unauthorizedPath = "/unauthorized"

type (
	GuardState string

	// RoutePolicy is the static, declarative access rule for a route subtree.
	RoutePolicy struct {
		RequiredAccountType session.AccountType // optional
		RedirectTo          string              // optional login path override
	}
)

// EvaluateGuard decides whether a protected view renders.
//   - While restoration is in flight, only the neutral checking state is
//     allowed: never the protected content, never a redirect.
//   - An admin session bypasses any account-type restriction.
func EvaluateGuard(restoring bool, sess session.Session, adminBypass bool, pol RoutePolicy) GuardState {
	switch {
	case restoring:
		return GuardChecking
	case !sess.IsAuthenticated():
		return GuardRedirectLogin
	case pol.RequiredAccountType != session.AccountNone &&
		sess.AccountType() != pol.RequiredAccountType && !adminBypass:
		return GuardRedirectUnauthorized
	default:
		return GuardAllowed
	}
}

// guardMiddleware gates rendering of a protected route subtree.
func guardMiddleware(pol RoutePolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			store, err := getContextStore(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context store")
			}

			switch EvaluateGuard(!store.Hydrated(), store.Current(), store.IsAdmin(), pol) {
			case GuardChecking:
				return ctx.JSON(http.StatusAccepted, echo.Map{"status": "checking"})

			case GuardRedirectLogin:
				loginPath := pol.RedirectTo
				if loginPath == "" {
					loginPath = loginSurfaceForPath(ctx.Request().URL.Path)
				}
				// carry the originally requested location so the user can be
				// sent back there post-login
				next := url.QueryEscape(ctx.Request().RequestURI)
				return ctx.Redirect(http.StatusFound, loginPath+"?next="+next)

			case GuardRedirectUnauthorized:
				return ctx.Redirect(http.StatusFound, unauthorizedPath)
			}
			return next(ctx)
		}
	}
}

// loginSurfaceForPath picks a login surface by URL path prefix. Route prefixes
// are assumed to be a reliable proxy for the intended audience.
func loginSurfaceForPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/admin"):
		return "/admin/login"
	case strings.HasPrefix(path, "/organization"):
		return "/organization/login"
	default:
		return "/login"
	}
}
