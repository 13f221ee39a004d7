package echodash

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/fetch"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/services/trainapi"
)

// screenPayload is the uniform envelope every data-driven screen renders:
// exactly one of loading/error/success, keyed on phase.
type screenPayload struct {
	Phase fetch.Phase `json:"phase"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Retry bool        `json:"retry,omitempty"`
}

// fetchPayload drives one fetch.Resource attempt and maps its terminal phase
// to a screenPayload. Session-fatal errors are returned instead so the error
// handler can redirect.
func fetchPayload[T any](ctx context.Context, fn func(context.Context) (T, error)) (screenPayload, error) {
	res := fetch.NewResource[T]()
	res.Trigger(ctx, fn)

	if info := res.Err(); info != nil {
		if errors.Cause(info.Cause) == trainapi.ErrUnauthenticated {
			return screenPayload{}, info.Cause
		}
		return screenPayload{Phase: fetch.PhaseError, Error: info.Message, Retry: true}, nil
	}
	data, _ := res.Data()
	return screenPayload{Phase: fetch.PhaseSuccess, Data: data}, nil
}

func renderFetched[T any](ctx echo.Context, fn func(context.Context) (T, error)) error {
	payload, err := fetchPayload(ctx.Request().Context(), fn)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, payload)
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

// Catalog screens (any authenticated account)

type catalogApi struct {
	deps ServerDeps
}

func registerCatalogAPI(app *echo.Echo, deps ServerDeps) {
	api := catalogApi{deps: deps}

	g := app.Group("/trainings", guardMiddleware(RoutePolicy{}))
	g.GET("", api.list)
	g.GET("/:id", api.retrieve)

	e := app.Group("/enrollments", guardMiddleware(RoutePolicy{}))
	e.GET("", api.myEnrollments)
	e.POST("", api.enroll)
	e.DELETE("/:id", api.cancelEnrollment)
}

func (api *catalogApi) list(ctx echo.Context) error {
	filter := trainapi.TrainingFilter{Search: core.CleanString(ctx.QueryParam("search"))}
	return renderFetched(ctx, func(c context.Context) ([]trainapi.Training, error) {
		return api.deps.API.ListTrainings(c, filter)
	})
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	return renderFetched(ctx, func(c context.Context) (trainapi.Training, error) {
		return api.deps.API.GetTraining(c, id)
	})
}

func (api *catalogApi) myEnrollments(ctx echo.Context) error {
	return renderFetched(ctx, func(c context.Context) ([]trainapi.Enrollment, error) {
		return api.deps.API.ListEnrollments(c, trainapi.EnrollmentFilter{})
	})
}

func (api *catalogApi) enroll(ctx echo.Context) error {
	var data trainapi.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if data.CohortID <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "cohort_id", Error: "this field is required"})
	}

	enr, err := api.deps.API.CreateEnrollment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *catalogApi) cancelEnrollment(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.deps.API.CancelEnrollment(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "cancelling enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Organization screens

type orgApi struct {
	deps ServerDeps
}

func registerOrgAPI(app *echo.Echo, deps ServerDeps) {
	api := orgApi{deps: deps}

	g := app.Group("/organization",
		guardMiddleware(RoutePolicy{RequiredAccountType: session.AccountOrganization}))

	g.GET("/members", api.listMembers)
	g.POST("/members", api.inviteMember)
	g.DELETE("/members/:id", api.removeMember)
	g.POST("/members/import", api.importMembers)

	g.GET("/cohorts", api.listCohorts)
	g.GET("/cohorts/:id", api.getCohort)
	g.POST("/cohorts", api.createCohort)
	g.PUT("/cohorts/:id", api.updateCohort)
	g.DELETE("/cohorts/:id", api.deleteCohort)

	g.GET("/enrollments", api.listEnrollments)
	g.POST("/enrollments", api.createEnrollment)
}

// orgID resolves the acting organization: the first of the session's
// organization list. Multi-org switching is not supported yet.
func (api *orgApi) orgID(ctx echo.Context) (int, error) {
	store, err := getContextStore(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting context store")
	}
	orgs := store.Current().Organizations()
	if len(orgs) == 0 {
		return 0, echo.NewHTTPError(http.StatusForbidden, "no organization on this account")
	}
	return orgs[0].ID, nil
}

func (api *orgApi) listMembers(ctx echo.Context) error {
	orgID, err := api.orgID(ctx)
	if err != nil {
		return err
	}
	return renderFetched(ctx, func(c context.Context) ([]trainapi.Member, error) {
		return api.deps.API.ListMembers(c, orgID)
	})
}

func (api *orgApi) inviteMember(ctx echo.Context) error {
	orgID, err := api.orgID(ctx)
	if err != nil {
		return err
	}

	var data trainapi.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)

	member, err := api.deps.API.InviteMember(ctx.Request().Context(), orgID, data)
	if err != nil {
		return errors.Wrap(err, "inviting member")
	}
	api.deps.Notifier.Notify(ctx.Request().Context(), core.Notification{
		Level:   core.NotifySuccess,
		Message: "Invitation sent to " + member.Email + ".",
	})
	return ctx.JSON(http.StatusCreated, member)
}

func (api *orgApi) removeMember(ctx echo.Context) error {
	orgID, err := api.orgID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.deps.API.RemoveMember(ctx.Request().Context(), orgID, id); err != nil {
		return errors.Wrap(err, "removing member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *orgApi) importMembers(ctx echo.Context) error {
	orgID, err := api.orgID(ctx)
	if err != nil {
		return err
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a CSV file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	report, err := api.deps.API.ImportMembers(ctx.Request().Context(), orgID, fileHdr.Filename, file)
	if err != nil {
		return errors.Wrap(err, "importing members")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *orgApi) listCohorts(ctx echo.Context) error {
	orgID, err := api.orgID(ctx)
	if err != nil {
		return err
	}
	filter := trainapi.CohortFilter{
		OrganizationID: orgID,
		Search:         core.CleanString(ctx.QueryParam("search")),
	}
	return renderFetched(ctx, func(c context.Context) ([]trainapi.Cohort, error) {
		return api.deps.API.ListCohorts(c, filter)
	})
}

func (api *orgApi) getCohort(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	return renderFetched(ctx, func(c context.Context) (trainapi.Cohort, error) {
		return api.deps.API.GetCohort(c, id)
	})
}

func (api *orgApi) createCohort(ctx echo.Context) error {
	var data trainapi.NewCohort
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCohort")
	}
	data.Name = core.CleanString(data.Name)
	if data.Name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}

	cohort, err := api.deps.API.CreateCohort(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cohort")
	}
	return ctx.JSON(http.StatusCreated, cohort)
}

func (api *orgApi) updateCohort(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data trainapi.UpdateCohort
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCohort")
	}

	cohort, err := api.deps.API.UpdateCohort(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating cohort")
	}
	return ctx.JSON(http.StatusOK, cohort)
}

func (api *orgApi) deleteCohort(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.deps.API.DeleteCohort(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting cohort")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *orgApi) listEnrollments(ctx echo.Context) error {
	orgID, err := api.orgID(ctx)
	if err != nil {
		return err
	}
	filter := trainapi.EnrollmentFilter{
		OrganizationID: orgID,
		Status:         core.CleanString(ctx.QueryParam("status"), true /* lower */),
	}
	if cohortID, err := strconv.Atoi(ctx.QueryParam("cohort_id")); err == nil {
		filter.CohortID = cohortID
	}
	return renderFetched(ctx, func(c context.Context) ([]trainapi.Enrollment, error) {
		return api.deps.API.ListEnrollments(c, filter)
	})
}

func (api *orgApi) createEnrollment(ctx echo.Context) error {
	var data trainapi.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if data.CohortID <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "cohort_id", Error: "this field is required"})
	}

	enr, err := api.deps.API.CreateEnrollment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// Admin screens

type adminApi struct {
	deps ServerDeps
}

func registerAdminAPI(app *echo.Echo, deps ServerDeps) {
	api := adminApi{deps: deps}

	g := app.Group("/admin",
		guardMiddleware(RoutePolicy{RequiredAccountType: session.AccountAdmin}))

	g.GET("/organizations", api.listOrganizations)
	g.GET("/trainings", api.listTrainings)
	g.POST("/trainings", api.createTraining)
	g.PUT("/trainings/:id", api.updateTraining)
	g.DELETE("/trainings/:id", api.deleteTraining)
}

func (api *adminApi) listOrganizations(ctx echo.Context) error {
	return renderFetched(ctx, api.deps.API.ListOrganizations)
}

func (api *adminApi) listTrainings(ctx echo.Context) error {
	filter := trainapi.TrainingFilter{Search: core.CleanString(ctx.QueryParam("search"))}
	return renderFetched(ctx, func(c context.Context) ([]trainapi.Training, error) {
		return api.deps.API.ListTrainings(c, filter)
	})
}

func (api *adminApi) createTraining(ctx echo.Context) error {
	var data trainapi.NewTraining
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTraining")
	}
	data.Title = core.CleanString(data.Title)
	if data.Title == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field is required"})
	}

	training, err := api.deps.API.CreateTraining(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating training")
	}
	return ctx.JSON(http.StatusCreated, training)
}

func (api *adminApi) updateTraining(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data trainapi.UpdateTraining
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTraining")
	}

	training, err := api.deps.API.UpdateTraining(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating training")
	}
	return ctx.JSON(http.StatusOK, training)
}

func (api *adminApi) deleteTraining(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.deps.API.DeleteTraining(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting training")
	}
	return ctx.NoContent(http.StatusNoContent)
}
