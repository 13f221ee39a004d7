package echodash

import (
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/session"
)

func guardSession(t *testing.T, at session.AccountType, ident session.Identity) session.Session {
	t.Helper()
	sess, err := session.Authenticated(at, ident, "tok", nil)
	if err != nil {
		t.Fatalf("Authenticated(): %v", err)
	}
	return sess
}

func TestEvaluateGuard(t *testing.T) {
	tests := []struct {
		name        string
		restoring   bool
		sess        func(t *testing.T) session.Session
		adminBypass bool
		pol         RoutePolicy
		want        GuardState
	}{
		{
			name:      "restoring yields checking, never content",
			restoring: true,
			sess: func(t *testing.T) session.Session {
				return guardSession(t, session.AccountIndividual, session.Identity{ID: 1})
			},
			want: GuardChecking,
		},
		{
			name:      "restoring anonymous yields checking, never a redirect",
			restoring: true,
			sess:      func(t *testing.T) session.Session { return session.Anonymous() },
			want:      GuardChecking,
		},
		{
			name: "anonymous redirects to login",
			sess: func(t *testing.T) session.Session { return session.Anonymous() },
			want: GuardRedirectLogin,
		},
		{
			name: "authenticated passes an unrestricted route",
			sess: func(t *testing.T) session.Session {
				return guardSession(t, session.AccountIndividual, session.Identity{ID: 1})
			},
			want: GuardAllowed,
		},
		{
			name: "account type mismatch redirects to unauthorized",
			sess: func(t *testing.T) session.Session {
				return guardSession(t, session.AccountIndividual, session.Identity{ID: 1})
			},
			pol:  RoutePolicy{RequiredAccountType: session.AccountOrganization},
			want: GuardRedirectUnauthorized,
		},
		{
			name: "admin bypasses the account type restriction",
			sess: func(t *testing.T) session.Session {
				return guardSession(t, session.AccountAdmin, session.Identity{ID: 1, Role: "admin"})
			},
			adminBypass: true,
			pol:         RoutePolicy{RequiredAccountType: session.AccountOrganization},
			want:        GuardAllowed,
		},
		{
			name: "matching account type passes",
			sess: func(t *testing.T) session.Session {
				return guardSession(t, session.AccountOrganization, session.Identity{ID: 1})
			},
			pol:  RoutePolicy{RequiredAccountType: session.AccountOrganization},
			want: GuardAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateGuard(tt.restoring, tt.sess(t), tt.adminBypass, tt.pol)
			if got != tt.want {
				t.Errorf("EvaluateGuard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoginSurfaceForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/admin/organizations", want: "/admin/login"},
		{path: "/admin", want: "/admin/login"},
		{path: "/organization/members", want: "/organization/login"},
		{path: "/dashboard", want: "/login"},
		{path: "/trainings/3", want: "/login"},
		{path: "/", want: "/login"},
	}
	for _, tt := range tests {
		if got := loginSurfaceForPath(tt.path); got != tt.want {
			t.Errorf("loginSurfaceForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGuard_anonymousRedirects(t *testing.T) {
	app, _, _, _ := setup(t)

	tests := []httpTest{
		{
			name:     "dashboard goes to the default login",
			method:   http.MethodGet,
			path:     "/dashboard",
			wantCode: http.StatusFound,
			extra:    "/login?next=%2Fdashboard",
		},
		{
			name:     "admin surface goes to the admin login",
			method:   http.MethodGet,
			path:     "/admin/organizations",
			wantCode: http.StatusFound,
			extra:    "/admin/login?next=%2Fadmin%2Forganizations",
		},
		{
			name:     "organization surface goes to the organization login",
			method:   http.MethodGet,
			path:     "/organization/members",
			wantCode: http.StatusFound,
			extra:    "/organization/login?next=%2Forganization%2Fmembers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if loc := rec.Header().Get("Location"); loc != tt.extra {
				t.Errorf("Location = %q, want %q", loc, tt.extra)
			}
		})
	}
}

func TestGuard_accountTypeMismatch(t *testing.T) {
	app, _, _, conf := setup(t)

	// establish an individual session
	req, rec := newRequest(http.MethodPost, "/login", marchallObj(t, LoginRequest{Field: "amina@test.test", Password: "pw"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %v %v", rec.Code, rec.Body.String())
	}
	cookie := sessionCookieFrom(t, conf, rec)

	// individuals do not get into the admin surface
	req, rec = newSessionRequest(http.MethodGet, "/admin/organizations", cookie)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/unauthorized" {
		t.Errorf("Location = %q, want /unauthorized", loc)
	}

	// but unrestricted authenticated routes are fine
	req, rec = newSessionRequest(http.MethodGet, "/dashboard", cookie)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %v; wantCode %v: %v", rec.Code, http.StatusOK, rec.Body.String())
	}
}
