package echoapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/services/export"
)

type studentApi struct {
	svc *student.Service
}

// registerStudentAPI registers the student endpoints; g must be authenticated.
// Mutations only ever target the record owned by the authenticated user.
func registerStudentAPI(g *echo.Group, svc *student.Service) {
	api := studentApi{svc: svc}

	g.GET("", api.list)
	g.GET("/export", api.export)
	g.GET("/me", api.retrieveOwn)
	g.PUT("/me", api.updateOwn)
	g.POST("/me/pay", api.payOwn)
}

// Handlers

func (api *studentApi) list(ctx echo.Context) error {
	students, err := api.svc.ListAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) export(ctx echo.Context) error {
	students, err := api.svc.ListAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	var buf bytes.Buffer
	if err = exportsvc.WriteRoster(&buf, students); err != nil {
		return errors.Wrap(err, "exporting roster")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="roster.xlsx"`)
	return ctx.Blob(http.StatusOK, exportsvc.XLSXContentType, buf.Bytes())
}

func (api *studentApi) retrieveOwn(ctx echo.Context) error {
	claims, err := contextClaims(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.GetOwn(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting own student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) updateOwn(ctx echo.Context) error {
	claims, err := contextClaims(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	st, err := api.svc.UpdateOwn(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "updating own student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) payOwn(ctx echo.Context) error {
	claims, err := contextClaims(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.MarkPaid(ctx.Request().Context(), claims.Subject, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "marking own student paid")
	}
	return ctx.JSON(http.StatusOK, st)
}
