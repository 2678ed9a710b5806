package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/assignment"
	"github.com/mwalimu/darasa/core/subject"
	"github.com/mwalimu/darasa/core/submission"
	"github.com/mwalimu/darasa/storage/files"
)

type assignmentApi struct {
	svc        *assignment.Service
	subjectSvc *subject.Service
	subSvc     *submission.Service
	uploads    *files.Store
	validate   *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{
		svc:        deps.AssignmentSvc,
		subjectSvc: deps.SubjectSvc,
		subSvc:     deps.SubmissionSvc,
		uploads:    deps.Uploads,
		validate:   deps.Validate,
	}

	sg := g.Group("/subjects/:id/assignments", jwt)
	sg.POST("", api.create, teacherMiddleware())
	sg.GET("", api.query)

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id/grades.csv", api.exportGrades, teacherMiddleware())

	g.GET("/dashboard", api.dashboard, jwt, teacherMiddleware())
}

// Handlers

// create accepts a multipart form so an optional worksheet file can ride
// along with the assignment fields.
func (api *assignmentApi) create(ctx echo.Context) error {
	subjectID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.checkSubjectOwner(ctx, subjectID); err != nil {
		return err
	}

	data := assignment.NewAssignment{
		SubjectID:   subjectID,
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		Deadline:    ctx.FormValue("deadline"),
		GradingMode: ctx.FormValue("grading_mode"),
	}
	if v := ctx.FormValue("max_score"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "parsing max_score")
		}
		data.MaxScore = &max
	}
	if v := ctx.FormValue("require_score"); v != "" {
		data.RequireScore, _ = strconv.ParseBool(v)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var worksheetPath string
	if fh, err := ctx.FormFile("worksheet"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening worksheet upload")
		}
		defer func() { _ = f.Close() }()
		if worksheetPath, err = api.uploads.Save(fh.Filename, f); err != nil {
			return errors.Wrap(err, "saving worksheet upload")
		}
	}

	a, err := api.svc.Create(ctx.Request().Context(), data, worksheetPath)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, api.withWorksheetURL(a))
}

func (api *assignmentApi) query(ctx echo.Context) error {
	subjectID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	assignments, err := api.svc.QueryBySubject(ctx.Request().Context(), subjectID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	for i := range assignments {
		assignments[i] = api.withWorksheetURL(assignments[i])
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) dashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rows, err := api.svc.TeacherDashboard(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return errors.Wrap(err, "querying dashboard")
	}
	if rows == nil {
		rows = []assignment.DashboardRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *assignmentApi) exportGrades(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.checkAssignmentOwner(ctx, id); err != nil {
		return err
	}

	data, err := api.subSvc.ExportGradesCSV(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "exporting grades")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="grades-%d.csv"`, id))
	return ctx.Blob(http.StatusOK, "text/csv", data)
}

// checkSubjectOwner ensures the calling teacher owns the subject.
func (api *assignmentApi) checkSubjectOwner(ctx echo.Context, subjectID int) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	subj, err := api.subjectSvc.GetByID(ctx.Request().Context(), subjectID)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject by ID")
	}
	if subj.TeacherID != claims.UserID() {
		return errHttpForbidden
	}
	return nil
}

func (api *assignmentApi) checkAssignmentOwner(ctx echo.Context, assignmentID int) error {
	a, err := api.svc.GetByID(ctx.Request().Context(), assignmentID)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding assignment by ID")
	}
	return api.checkSubjectOwner(ctx, a.SubjectID)
}

func (api *assignmentApi) withWorksheetURL(a assignment.Assignment) assignment.Assignment {
	a.WorksheetURL = api.uploads.URL(a.WorksheetPath)
	return a
}
