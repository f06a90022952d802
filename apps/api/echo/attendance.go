package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceApi struct {
	deps ServerDeps
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{deps: deps}

	ag := g.Group("/attendance", jwt)
	ag.GET("/stats", api.stats)

	sg := ag.Group("/sessions")
	sg.POST("", api.openSession, teacherMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/entries", api.markEntry, teacherMiddleware())
	sg.POST("/:id/mark-all", api.markAll, teacherMiddleware())
	sg.POST("/:id/finalize", api.finalize, teacherMiddleware())
	sg.POST("/:id/remarks", api.addRemark, teacherMiddleware())
}

// Handlers

func (api *attendanceApi) openSession(ctx echo.Context) error {
	teacherRef, err := contextTeacherRef(ctx)
	if err != nil {
		return err
	}

	var data attendance.OpenSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenSession")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	s, err := api.deps.AttendanceSvc.OpenSession(teacherRef, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	s, err := api.deps.AttendanceSvc.GetSession(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) markEntry(ctx echo.Context) error {
	var data attendance.MarkEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkEntry")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	s, err := api.deps.AttendanceSvc.MarkEntry(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) markAll(ctx echo.Context) error {
	var data MarkAllRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAllRequest")
	}
	if err := data.Validate(api.deps); err != nil {
		return err
	}

	s, err := api.deps.AttendanceSvc.MarkAll(ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) finalize(ctx echo.Context) error {
	s, err := api.deps.AttendanceSvc.Finalize(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) addRemark(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data RemarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RemarkRequest")
	}
	if err := data.Validate(api.deps); err != nil {
		return err
	}

	s, err := api.deps.AttendanceSvc.AddRemark(ctx.Param("id"), claims.Subject, data.Text)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	var scope attendance.StatsScope
	if err := ctx.Bind(&scope); err != nil {
		return errors.Wrap(err, "binding to StatsScope")
	}

	stats, err := api.deps.AttendanceSvc.GetStats(scope)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

type (
	MarkAllRequest struct {
		Status string `json:"status" validate:"required,oneof=present absent late excused"`
	}

	RemarkRequest struct {
		Text string `json:"text" validate:"required"`
	}
)

func (mr *MarkAllRequest) Validate(deps ServerDeps) error {
	mr.Status = core.CleanString(mr.Status, true /* lower */)
	return deps.Validate.Struct(mr)
}

func (rr *RemarkRequest) Validate(deps ServerDeps) error {
	rr.Text = core.CleanString(rr.Text)
	return deps.Validate.Struct(rr)
}
