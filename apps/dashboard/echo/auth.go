package echodash

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

const contextStoreKey = "sessionStore"

// sessionClaims is the signed content of the dashboard session cookie: just
// the opaque session ID; everything else lives server-side.
type sessionClaims struct {
	jwt.StandardClaims
	SID string `json:"sid"`
}

func issueSessionCookie(ctx echo.Context, conf *core.Config, sid string) error {
	now := time.Now()
	claims := &sessionClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(conf.Server.SessionTTL).Unix(),
		},
		SID: sid,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return errors.Wrap(err, "signing session cookie")
	}

	ctx.SetCookie(&http.Cookie{
		Name:     conf.Server.SessionCookie,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(conf.Server.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func expireSessionCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     conf.Server.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func readSessionID(ctx echo.Context, conf *core.Config) (string, bool) {
	cookie, err := ctx.Cookie(conf.Server.SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	claims := new(sessionClaims)
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !token.Valid || claims.SID == "" {
		return "", false
	}
	return claims.SID, true
}

// sessionMiddleware builds the per-request session store: cookie -> session ID
// -> restored session. The store and session ID are attached to the request
// context so the gateway and notifiers can reach them.
func sessionMiddleware(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sid, ok := readSessionID(ctx, deps.Conf)
			if !ok {
				sid = uuid.New().String()
				if err := issueSessionCookie(ctx, deps.Conf, sid); err != nil {
					return errors.Wrap(err, "issuing session cookie")
				}
			}

			store := session.NewStore(sid, deps.Storage, deps.API, deps.Logger)

			req := ctx.Request()
			rctx := session.ContextWithSessionID(req.Context(), sid)
			rctx = session.ContextWithStore(rctx, store)
			ctx.SetRequest(req.WithContext(rctx))

			store.Restore(rctx)
			ctx.Set(contextStoreKey, store)
			return next(ctx)
		}
	}
}

func getContextStore(ctx echo.Context) (*session.Store, error) {
	if store, ok := ctx.Get(contextStoreKey).(*session.Store); ok {
		return store, nil
	}
	return nil, errors.New("session store not found in echo.Context")
}

// Handlers

type authApi struct {
	deps ServerDeps
}

func registerAuthAPI(app *echo.Echo, deps ServerDeps) {
	api := authApi{deps: deps}

	app.POST("/login", api.login(session.AccountIndividual))
	app.POST("/organization/login", api.login(session.AccountOrganization))
	app.POST("/admin/login", api.login(session.AccountAdmin))
	app.POST("/logout", api.logout)
	app.GET("/session", api.currentSession)
}

func (api *authApi) login(at session.AccountType) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data LoginRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to LoginRequest")
		}
		if err := data.Validate(api.deps.Validate); err != nil {
			return err
		}

		store, err := getContextStore(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context store")
		}

		creds := session.Credentials{Field: data.Field, Password: data.Password}
		sess, err := store.Login(ctx.Request().Context(), at, creds)
		if err != nil {
			return errors.Wrap(err, "logging in")
		}

		return ctx.JSON(http.StatusOK, newSessionView(ctx, api.deps, store, sess))
	}
}

func (api *authApi) logout(ctx echo.Context) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context store")
	}

	store.Logout(ctx.Request().Context())
	expireSessionCookie(ctx, api.deps.Conf)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "You have been logged out."})
}

func (api *authApi) currentSession(ctx echo.Context) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context store")
	}
	return ctx.JSON(http.StatusOK, newSessionView(ctx, api.deps, store, store.Current()))
}

type (
	LoginRequest struct {
		Field    string `json:"field" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Field = core.CleanString(lr.Field, true /* lower */)
	return validate.Struct(lr)
}
