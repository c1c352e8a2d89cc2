package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core/exam"
)

type scheduleApi struct {
	svc exam.ScheduleService
}

func registerScheduleAPI(g *echo.Group, svc exam.ScheduleService) {
	api := scheduleApi{svc: svc}

	sg := g.Group("/exam-schedules")
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.PATCH("/:id/status", api.changeStatus)
	sg.DELETE("/:id", api.destroy)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data exam.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}

	sched, err := api.svc.CreateSchedule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(exam.ScheduleFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ScheduleFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, exam.ScheduleOrderings)

	scheds, err := api.svc.QuerySchedules(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying exam schedules")
	}
	return ctx.JSON(http.StatusOK, scheds)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	sched, err := api.svc.GetSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting exam schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	var data exam.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}

	sched, err := api.svc.UpdateSchedule(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating exam schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) changeStatus(ctx echo.Context) error {
	var data exam.ChangeScheduleStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeScheduleStatus")
	}

	sched, err := api.svc.ChangeScheduleStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "changing exam schedule status")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteSchedule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting exam schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
