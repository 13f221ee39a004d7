package echodash

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/services/trainapi"
)

type (
	NavItem struct {
		Label string `json:"label"`
		Path  string `json:"path"`
	}

	// HeaderView is the top navigation presentation for one role.
	HeaderView struct {
		Variant session.Role `json:"variant"`
		Brand   string       `json:"brand"`
		Items   []NavItem    `json:"items"`
	}

	// SidebarView is the side navigation presentation for one role.
	SidebarView struct {
		Variant session.Role `json:"variant"`
		Items   []NavItem    `json:"items"`
	}

	// LandingView is the dashboard landing page for one role; widgets carry
	// their own fetch phase so the shell renders skeleton/error/content per
	// widget.
	LandingView struct {
		Variant session.Role             `json:"variant"`
		Widgets map[string]screenPayload `json:"widgets"`
	}

	// SessionView is the session state handed to the browser shell.
	SessionView struct {
		Hydrated      bool                          `json:"hydrated"`
		Authenticated bool                          `json:"authenticated"`
		AccountType   session.AccountType           `json:"account_type,omitempty"`
		Role          session.Role                  `json:"role"`
		Identity      *session.Identity             `json:"identity,omitempty"`
		Organizations []session.OrganizationSummary `json:"organizations,omitempty"`
		Flashes       []session.Flash               `json:"flashes,omitempty"`
	}
)

// SelectHeaderView picks exactly one top navigation presentation for the
// role. Anonymous and Individual share the default presentation; they are not
// distinguished at this layer.
func SelectHeaderView(role session.Role) HeaderView {
	switch role {
	case session.RoleSystemAdmin:
		return HeaderView{Variant: session.RoleSystemAdmin, Brand: "Darasa Admin", Items: []NavItem{
			{Label: "Overview", Path: "/dashboard"},
			{Label: "Organizations", Path: "/admin/organizations"},
			{Label: "Trainings", Path: "/admin/trainings"},
		}}
	case session.RoleOrgAdmin:
		return HeaderView{Variant: session.RoleOrgAdmin, Brand: "Darasa", Items: []NavItem{
			{Label: "Overview", Path: "/dashboard"},
			{Label: "Members", Path: "/organization/members"},
			{Label: "Cohorts", Path: "/organization/cohorts"},
		}}
	case session.RoleOrgMember:
		return HeaderView{Variant: session.RoleOrgMember, Brand: "Darasa", Items: []NavItem{
			{Label: "Overview", Path: "/dashboard"},
			{Label: "My Cohorts", Path: "/organization/cohorts"},
		}}
	default:
		return HeaderView{Variant: session.RoleIndividual, Brand: "Darasa", Items: []NavItem{
			{Label: "Overview", Path: "/dashboard"},
			{Label: "Trainings", Path: "/trainings"},
		}}
	}
}

// SelectSidebarView picks exactly one side navigation presentation for the role.
func SelectSidebarView(role session.Role) SidebarView {
	switch role {
	case session.RoleSystemAdmin:
		return SidebarView{Variant: session.RoleSystemAdmin, Items: []NavItem{
			{Label: "Organizations", Path: "/admin/organizations"},
			{Label: "Trainings", Path: "/admin/trainings"},
		}}
	case session.RoleOrgAdmin:
		return SidebarView{Variant: session.RoleOrgAdmin, Items: []NavItem{
			{Label: "Members", Path: "/organization/members"},
			{Label: "Cohorts", Path: "/organization/cohorts"},
			{Label: "Enrollments", Path: "/organization/enrollments"},
		}}
	case session.RoleOrgMember:
		return SidebarView{Variant: session.RoleOrgMember, Items: []NavItem{
			{Label: "My Cohorts", Path: "/organization/cohorts"},
			{Label: "My Enrollments", Path: "/organization/enrollments"},
		}}
	default:
		return SidebarView{Variant: session.RoleIndividual, Items: []NavItem{
			{Label: "Trainings", Path: "/trainings"},
			{Label: "My Enrollments", Path: "/enrollments"},
		}}
	}
}

func newSessionView(ctx echo.Context, deps ServerDeps, store *session.Store, sess session.Session) SessionView {
	flashes, err := deps.Storage.PopFlashes(ctx.Request().Context(), store.SessionID())
	if err != nil {
		deps.Logger.Warn("popping flashes: "+err.Error(), err)
	}
	return SessionView{
		Hydrated:      store.Hydrated(),
		Authenticated: sess.IsAuthenticated(),
		AccountType:   sess.AccountType(),
		Role:          session.ResolveRole(sess),
		Identity:      sess.Identity(),
		Organizations: sess.Organizations(),
		Flashes:       flashes,
	}
}

// Handlers

type dashboardApi struct {
	deps ServerDeps
}

func registerDashboardAPI(app *echo.Echo, deps ServerDeps) {
	api := dashboardApi{deps: deps}

	g := app.Group("/dashboard", guardMiddleware(RoutePolicy{}))
	g.GET("", api.landing)
	g.GET("/nav", api.nav)
}

func (api *dashboardApi) nav(ctx echo.Context) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context store")
	}

	role := session.ResolveRole(store.Current())
	return ctx.JSON(http.StatusOK, echo.Map{
		"header":  SelectHeaderView(role),
		"sidebar": SelectSidebarView(role),
	})
}

// landing assembles the role-specific dashboard landing page; exactly one
// variant renders per request.
func (api *dashboardApi) landing(ctx echo.Context) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context store")
	}

	rctx := ctx.Request().Context()
	sess := store.Current()
	role := session.ResolveRole(sess)
	view := LandingView{Variant: role, Widgets: make(map[string]screenPayload)}

	switch role {
	case session.RoleSystemAdmin:
		orgs, err := fetchPayload(rctx, api.deps.API.ListOrganizations)
		if err != nil {
			return err
		}
		view.Widgets["organizations"] = orgs

	case session.RoleOrgAdmin:
		orgs := sess.Organizations()
		if len(orgs) > 0 {
			orgID := orgs[0].ID
			org, err := fetchPayload(rctx, func(c context.Context) (trainapi.Organization, error) {
				return api.deps.API.GetOrganization(c, orgID)
			})
			if err != nil {
				return err
			}
			view.Widgets["organization"] = org

			cohorts, err := fetchPayload(rctx, func(c context.Context) ([]trainapi.Cohort, error) {
				return api.deps.API.ListCohorts(c, trainapi.CohortFilter{OrganizationID: orgID})
			})
			if err != nil {
				return err
			}
			view.Widgets["cohorts"] = cohorts
		}

	case session.RoleOrgMember:
		enrollments, err := fetchPayload(rctx, func(c context.Context) ([]trainapi.Enrollment, error) {
			return api.deps.API.ListEnrollments(c, trainapi.EnrollmentFilter{})
		})
		if err != nil {
			return err
		}
		view.Widgets["enrollments"] = enrollments

	default: // Individual (and Anonymous never reaches here past the guard)
		trainings, err := fetchPayload(rctx, func(c context.Context) ([]trainapi.Training, error) {
			return api.deps.API.ListTrainings(c, trainapi.TrainingFilter{})
		})
		if err != nil {
			return err
		}
		view.Widgets["trainings"] = trainings
	}

	return ctx.JSON(http.StatusOK, view)
}
