package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core/exam"
)

type applicationApi struct {
	svc exam.ApplicationService
}

func registerApplicationAPI(g *echo.Group, svc exam.ApplicationService) {
	api := applicationApi{svc: svc}

	ag := g.Group("/exam-applications")
	ag.POST("", api.submit)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/confirm-payment", api.confirmPayment)
	ag.POST("/:id/cancel", api.cancel)
	ag.POST("/:id/result", api.recordResult)
}

func (api *applicationApi) submit(ctx echo.Context) error {
	var data exam.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}

	app, err := api.svc.SubmitApplication(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting exam application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) query(ctx echo.Context) error {
	filter := new(exam.ApplicationFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ApplicationFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, exam.ApplicationOrderings)

	apps, err := api.svc.QueryApplications(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying exam applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.GetApplication(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting exam application")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *applicationApi) confirmPayment(ctx echo.Context) error {
	var data exam.ConfirmPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmPayment")
	}

	app, err := api.svc.ConfirmPayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) cancel(ctx echo.Context) error {
	app, err := api.svc.CancelApplication(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling exam application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) recordResult(ctx echo.Context) error {
	var data exam.RecordResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordResult")
	}

	app, err := api.svc.RecordResult(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording exam result")
	}
	return ctx.JSON(http.StatusOK, app)
}

type resultApi struct {
	svc exam.ApplicationService
}

func registerResultAPI(g *echo.Group, svc exam.ApplicationService) {
	api := resultApi{svc: svc}
	g.GET("/exam-results", api.lookup)
}

// lookup is public: it answers by exam number only.
func (api *resultApi) lookup(ctx echo.Context) error {
	examNumber := ctx.QueryParam("examNumber")
	if examNumber == "" {
		return errHttpNotFound
	}

	detail, err := api.svc.LookupByExamNumber(ctx.Request().Context(), examNumber)
	if err != nil {
		return errors.Wrap(err, "looking up exam result")
	}
	return ctx.JSON(http.StatusOK, detail.Result())
}
