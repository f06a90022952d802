package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/grades"
)

type gradeApi struct {
	deps ServerDeps
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{deps: deps}

	gg := g.Group("/grades", jwt)

	ag := gg.Group("/assessments")
	ag.POST("", api.createAssessment, teacherMiddleware())
	ag.GET("/:id", api.retrieveAssessment)
	ag.POST("/:id/results", api.recordResult, teacherMiddleware())

	rg := gg.Group("/records")
	rg.GET("", api.queryRecords)
	rg.GET("/students/:id", api.studentRecords)
}

// Handlers

func (api *gradeApi) createAssessment(ctx echo.Context) error {
	teacherRef, err := contextTeacherRef(ctx)
	if err != nil {
		return err
	}

	var data grades.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	a, err := api.deps.GradeSvc.CreateAssessment(teacherRef, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *gradeApi) retrieveAssessment(ctx echo.Context) error {
	a, err := api.deps.GradeSvc.GetAssessment(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *gradeApi) recordResult(ctx echo.Context) error {
	var data grades.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	a, err := api.deps.GradeSvc.RecordResult(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

// queryRecords lists the ranked grade records of a class/subject/term scope,
// or one student's record when student_ref is given.
func (api *gradeApi) queryRecords(ctx echo.Context) error {
	if studentRef := ctx.QueryParam("student_ref"); studentRef != "" {
		subjectRef, term := ctx.QueryParam("subject_ref"), ctx.QueryParam("term")
		if subjectRef == "" || term == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "subject_ref and term are required")
		}
		r, err := api.deps.GradeSvc.GetGradeRecord(studentRef, subjectRef, term)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, r)
	}

	classRef, subjectRef, term := ctx.QueryParam("class_ref"), ctx.QueryParam("subject_ref"), ctx.QueryParam("term")
	if classRef == "" || subjectRef == "" || term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "class_ref, subject_ref and term are required")
	}

	records, err := api.deps.GradeSvc.ClassGradeRecords(classRef, subjectRef, term)
	if err != nil {
		return errors.Wrap(err, "querying grade records")
	}
	if records == nil {
		records = []grades.GradeRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *gradeApi) studentRecords(ctx echo.Context) error {
	records, err := api.deps.GradeSvc.StudentGradeRecords(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying grade records")
	}
	if records == nil {
		records = []grades.GradeRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}
