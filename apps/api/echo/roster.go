package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

type rosterApi struct {
	deps ServerDeps
}

func registerRosterAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := rosterApi{deps: deps}

	rg := g.Group("/roster", jwt)

	tg := rg.Group("/teachers")
	tg.POST("", api.createTeacher, adminMiddleware())
	tg.GET("/:id", api.retrieveTeacher)
	tg.GET("/:id/classes", api.teacherClasses)
	tg.DELETE("/:id", api.deactivateTeacher, adminMiddleware())

	sg := rg.Group("/subjects")
	sg.POST("", api.createSubject, adminMiddleware())

	cg := rg.Group("/classes")
	cg.POST("", api.createClass, adminMiddleware())
	cg.GET("/:id", api.retrieveClass)
	cg.GET("/:id/students", api.classStudents)
	cg.POST("/:id/assign-teacher", api.assignTeacher, adminMiddleware())

	stg := rg.Group("/students")
	stg.POST("", api.enrollStudent, adminMiddleware())
	stg.GET("/:id", api.retrieveStudent)
	stg.DELETE("/:id", api.deactivateStudent, adminMiddleware())
}

// Handlers

func (api *rosterApi) createTeacher(ctx echo.Context) error {
	var data roster.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	t, err := api.deps.RosterSvc.CreateTeacher(data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *rosterApi) retrieveTeacher(ctx echo.Context) error {
	t, err := api.deps.RosterSvc.GetTeacher(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *rosterApi) teacherClasses(ctx echo.Context) error {
	classes, err := api.deps.RosterSvc.TeacherClasses(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying teacher classes")
	}
	if classes == nil {
		classes = []roster.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) deactivateTeacher(ctx echo.Context) error {
	if _, err := api.deps.RosterSvc.DeactivateTeacher(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) createSubject(ctx echo.Context) error {
	var data roster.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	s, err := api.deps.RosterSvc.CreateSubject(data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) createClass(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if data.AcademicYear == "" {
		data.AcademicYear = api.deps.Conf.AcademicYear
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	c, err := api.deps.RosterSvc.CreateClass(data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *rosterApi) retrieveClass(ctx echo.Context) error {
	c, err := api.deps.RosterSvc.GetClass(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

// classStudents returns the class's active roster ordered by roll number.
func (api *rosterApi) classStudents(ctx echo.Context) error {
	students, err := api.deps.RosterSvc.ActiveStudents(ctx.Param("id"))
	if err != nil {
		return err
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) assignTeacher(ctx echo.Context) error {
	var data AssignTeacherRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeacherRequest")
	}
	if err := data.Validate(api.deps); err != nil {
		return err
	}

	c, err := api.deps.RosterSvc.AssignTeacher(data.TeacherRef, ctx.Param("id"), data.SubjectRef, data.PeriodsPerWeek)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *rosterApi) enrollStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator); err != nil {
		return err
	}

	st, err := api.deps.RosterSvc.EnrollStudent(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *rosterApi) retrieveStudent(ctx echo.Context) error {
	st, err := api.deps.RosterSvc.GetStudent(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *rosterApi) deactivateStudent(ctx echo.Context) error {
	if _, err := api.deps.RosterSvc.DeactivateStudent(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type AssignTeacherRequest struct {
	TeacherRef     string `json:"teacher_ref" validate:"required"`
	SubjectRef     string `json:"subject_ref" validate:"required"`
	PeriodsPerWeek int    `json:"periods_per_week" validate:"required,gt=0"`
}

func (ar *AssignTeacherRequest) Validate(deps ServerDeps) error {
	ar.TeacherRef = core.CleanString(ar.TeacherRef)
	ar.SubjectRef = core.CleanString(ar.SubjectRef)
	return deps.Validate.Struct(ar)
}
