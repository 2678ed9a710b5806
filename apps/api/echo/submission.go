package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/submission"
	"github.com/mwalimu/darasa/storage/files"
)

type submissionApi struct {
	svc      *submission.Service
	uploads  *files.Store
	conf     *core.Config
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := submissionApi{
		svc:      deps.SubmissionSvc,
		uploads:  deps.Uploads,
		conf:     deps.Conf,
		validate: deps.Validate,
	}

	ag := g.Group("/assignments/:id/submissions", jwt)
	ag.POST("", api.submit, studentMiddleware())
	ag.GET("", api.query, teacherMiddleware())

	sg := g.Group("/submissions", jwt)
	sg.PUT("/:id/grade", api.grade, teacherMiddleware())
}

// Handlers

// submit stores the student's files; resubmitting replaces the previous set
// and clears any grade.
func (api *submissionApi) submit(ctx echo.Context) error {
	assignmentID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: "this field is required"})
	}
	fhs := form.File["files"]
	if len(fhs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: "this field is required"})
	}
	if len(fhs) > api.conf.Upload.MaxFiles {
		return core.NewValidationError(nil, core.FieldError{
			Field: "files",
			Error: fmt.Sprintf("at most %d files are allowed", api.conf.Upload.MaxFiles),
		})
	}

	paths := make([]string, 0, len(fhs))
	for _, fh := range fhs {
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening submission upload")
		}
		path, err := api.uploads.Save(fh.Filename, f)
		_ = f.Close()
		if err != nil {
			return errors.Wrap(err, "saving submission upload")
		}
		paths = append(paths, path)
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), assignmentID, claims.UserID(), paths)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, api.withFileURLs(sub))
}

func (api *submissionApi) query(ctx echo.Context) error {
	assignmentID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	subs, err := api.svc.QueryByAssignment(ctx.Request().Context(), assignmentID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	for i := range subs {
		subs[i] = api.withFileURLs(subs[i])
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) grade(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Grade(ctx.Request().Context(), id, data.Grade, data.Feedback); err != nil {
		if errors.Cause(err) == submission.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "grading submission")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *submissionApi) withFileURLs(sub submission.Submission) submission.Submission {
	urls := make([]string, 0, len(sub.FilePaths))
	for _, p := range sub.FilePaths {
		urls = append(urls, api.uploads.URL(p))
	}
	sub.FileURLs = urls
	return sub
}

type GradeRequest struct {
	Grade    string `json:"grade" validate:"required"`
	Feedback string `json:"feedback"`
}

func (gr *GradeRequest) Validate(validate *validator.Validate) error {
	gr.Grade = core.CleanString(gr.Grade)
	gr.Feedback = core.CleanString(gr.Feedback)
	return validate.Struct(gr)
}
