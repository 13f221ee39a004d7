package echodash

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/services/trainapi"
)

type paymentApi struct {
	deps ServerDeps
}

func registerPaymentAPI(app *echo.Echo, deps ServerDeps) {
	api := paymentApi{deps: deps}

	g := app.Group("/payments", guardMiddleware(RoutePolicy{}))
	g.POST("", api.initiate)
	g.GET("/:reference", api.status)

	// the provider redirects back here; no guard, the reference is the proof
	app.GET("/payments/callback", api.callback)
}

// initiate starts a payment with the remote provider and hands the shell the
// provider redirect URL; the user completes the flow on the provider's pages.
func (api *paymentApi) initiate(ctx echo.Context) error {
	var data trainapi.PaymentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentRequest")
	}
	if data.TrainingID <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "training_id", Error: "this field is required"})
	}
	if data.ReturnURL == "" {
		data.ReturnURL = "https://" + ctx.Request().Host + "/payments/callback"
	}

	intent, err := api.deps.API.InitiatePayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "initiating payment")
	}
	return ctx.JSON(http.StatusCreated, intent)
}

func (api *paymentApi) status(ctx echo.Context) error {
	reference := core.CleanString(ctx.Param("reference"))
	if reference == "" {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	status, err := api.deps.API.GetPaymentStatus(ctx.Request().Context(), reference)
	if err != nil {
		return errors.Wrap(err, "fetching payment status")
	}
	return ctx.JSON(http.StatusOK, status)
}

// callback records the provider's outcome as a flash and sends the user back
// to the dashboard.
func (api *paymentApi) callback(ctx echo.Context) error {
	reference := core.CleanString(ctx.QueryParam("reference"))
	rctx := ctx.Request().Context()

	if reference == "" {
		api.deps.Notifier.Notify(rctx, core.Notification{
			Level:   core.NotifyError,
			Message: "Payment could not be verified.",
		})
		return ctx.Redirect(http.StatusFound, "/dashboard")
	}

	status, err := api.deps.API.GetPaymentStatus(rctx, reference)
	switch {
	case err != nil:
		api.deps.Notifier.Notify(rctx, core.Notification{
			Level:   core.NotifyWarning,
			Message: "Payment received; confirmation is still pending.",
		})
	case status.Status == trainapi.PaymentCompleted:
		api.deps.Notifier.Notify(rctx, core.Notification{
			Level:   core.NotifySuccess,
			Message: "Payment confirmed. You are enrolled!",
		})
	case status.Status == trainapi.PaymentFailed:
		api.deps.Notifier.Notify(rctx, core.Notification{
			Level:   core.NotifyError,
			Message: "Payment failed. " + status.Message.String,
		})
	default:
		api.deps.Notifier.Notify(rctx, core.Notification{
			Level:   core.NotifyInfo,
			Message: "Payment is being processed.",
		})
	}
	return ctx.Redirect(http.StatusFound, "/dashboard")
}
