package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/announcement"
	"github.com/mwalimu/darasa/core/subject"
)

type announcementApi struct {
	svc        *announcement.Service
	subjectSvc *subject.Service
	validate   *validator.Validate
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := announcementApi{
		svc:        deps.AnnouncementSvc,
		subjectSvc: deps.SubjectSvc,
		validate:   deps.Validate,
	}

	g.POST("/announcements", api.create, jwt, teacherMiddleware())
	g.GET("/subjects/:id/announcements", api.query, jwt)
}

// Handlers

// create persists the announcement, then broadcasts it and dispatches a best
// effort push to registered devices.
func (api *announcementApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	data.TeacherID = claims.UserID()
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// only the owning teacher may announce on a subject
	subj, err := api.subjectSvc.GetByID(ctx.Request().Context(), data.SubjectID)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject by ID")
	}
	if subj.TeacherID != claims.UserID() {
		return errHttpForbidden
	}

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *announcementApi) query(ctx echo.Context) error {
	subjectID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	anns, err := api.svc.QueryBySubject(ctx.Request().Context(), subjectID)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}
