package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core/certification"
)

type certificationApi struct {
	svc      certification.Service
	validate *validator.Validate
}

func registerCertificationAPI(g *echo.Group, svc certification.Service, validate *validator.Validate) {
	api := certificationApi{svc: svc, validate: validate}

	cg := g.Group("/certifications")
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *certificationApi) create(ctx echo.Context) error {
	var data certification.NewCertification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCertification")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	cert, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating certification")
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificationApi) query(ctx echo.Context) error {
	filter := new(certification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []certification.Certification{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, certification.Orderings)

	certs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying certifications")
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *certificationApi) retrieve(ctx echo.Context) error {
	cert, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting certification")
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificationApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	orig, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting certification")
	}

	var data certification.UpdateCertification
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCertification")
	}
	if err = data.Validate(reqCtx, orig, api.validate, api.svc); err != nil {
		return err
	}

	cert, err := api.svc.Update(reqCtx, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating certification")
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificationApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting certification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
