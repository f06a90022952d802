package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/homework"
)

type homeworkApi struct {
	deps ServerDeps
}

func registerHomeworkAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := homeworkApi{deps: deps}

	hg := g.Group("/homework", jwt)
	hg.POST("/sweep", api.sweep, adminMiddleware())

	ag := hg.Group("/assignments")
	ag.POST("", api.create, teacherMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.GET("/:id/submission-rate", api.submissionRate)
	ag.POST("/:id/submissions", api.submit)
	ag.POST("/:id/grade", api.grade, teacherMiddleware())
	ag.POST("/:id/cancel", api.cancel, teacherMiddleware())
}

// Handlers

func (api *homeworkApi) create(ctx echo.Context) error {
	teacherRef, err := contextTeacherRef(ctx)
	if err != nil {
		return err
	}

	var data homework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	a, err := api.deps.HomeworkSvc.CreateAssignment(teacherRef, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

// query lists assignments by teacher_ref or class_ref.
func (api *homeworkApi) query(ctx echo.Context) error {
	var assignments []homework.Assignment
	var err error
	switch {
	case ctx.QueryParam("teacher_ref") != "":
		assignments, err = api.deps.HomeworkSvc.QueryByTeacher(ctx.QueryParam("teacher_ref"))
	case ctx.QueryParam("class_ref") != "":
		assignments, err = api.deps.HomeworkSvc.QueryByClass(ctx.QueryParam("class_ref"))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "one of teacher_ref or class_ref is required")
	}
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []homework.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	a, err := api.deps.HomeworkSvc.GetAssignment(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *homeworkApi) submissionRate(ctx echo.Context) error {
	rate, err := api.deps.HomeworkSvc.GetSubmissionRate(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"submission_rate": rate})
}

func (api *homeworkApi) submit(ctx echo.Context) error {
	var data homework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	a, err := api.deps.HomeworkSvc.Submit(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *homeworkApi) grade(ctx echo.Context) error {
	teacherRef, err := contextTeacherRef(ctx)
	if err != nil {
		return err
	}

	var data homework.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	a, err := api.deps.HomeworkSvc.Grade(ctx.Param("id"), teacherRef, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *homeworkApi) cancel(ctx echo.Context) error {
	teacherRef, err := contextTeacherRef(ctx)
	if err != nil {
		return err
	}

	a, err := api.deps.HomeworkSvc.Cancel(ctx.Param("id"), teacherRef)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

// sweep closes out overdue assignments whose slots are all terminal.
func (api *homeworkApi) sweep(ctx echo.Context) error {
	n, err := api.deps.HomeworkSvc.Sweep()
	if err != nil {
		return errors.Wrap(err, "sweeping assignments")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"completed": n})
}
