package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/subject"
	"github.com/mwalimu/darasa/core/user"
)

type subjectApi struct {
	svc      *subject.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := subjectApi{
		svc:      deps.SubjectSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/subjects", jwt)
	sg.POST("", api.create, teacherMiddleware())
	sg.GET("", api.query)
}

// Handlers

func (api *subjectApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	data.TeacherID = claims.UserID()
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

// query lists the caller's subjects: a teacher sees the subjects they teach,
// a student the subjects visible to their grade and classroom.
func (api *subjectApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var subjects []subject.Subject
	if claims.IsTeacher {
		subjects, err = api.svc.QueryForTeacher(ctx.Request().Context(), claims.UserID())
	} else {
		usr, uerr := getContextUser(ctx, api.userSvc, claims)
		if uerr != nil {
			return errors.Wrap(uerr, "getting context user")
		}
		var gradeLevel, classroom int
		if usr.GradeLevel != nil {
			gradeLevel = *usr.GradeLevel
		}
		if usr.Classroom != nil {
			classroom = *usr.Classroom
		}
		subjects, err = api.svc.QueryForStudent(ctx.Request().Context(), gradeLevel, classroom)
	}
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}
