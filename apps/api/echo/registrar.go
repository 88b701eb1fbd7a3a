package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/grade"
	"github.com/tsfaye/sims/core/report"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
)

type registrarApi struct {
	opts *Options
}

func registerRegistrarAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := registrarApi{opts: opts}

	rg := g.Group("/registrar", jwt, registrarMiddleware())

	rg.GET("/dashboard", api.dashboard)

	rg.GET("/subjects", api.querySubjects)
	rg.POST("/assign-subjects", api.assignSubjects)
	rg.POST("/unassign-subject/:id", api.unassignSubject)
	rg.POST("/unassign-subjects-by-teacher", api.unassignByTeacher)

	rg.GET("/approve-registrations", api.queryPendingRegistrations)
	rg.POST("/approve-registrations", api.approveRegistration)

	rg.GET("/academic-records", api.queryAcademicRecords)
	rg.POST("/academic-records", api.upsertAcademicRecord)

	rg.GET("/waitlist/:subjectID", api.queryWaitlist)
	rg.POST("/waitlist/:subjectID", api.manageWaitlist)

	rg.GET("/transcripts", api.downloadTranscript)
}

type registrarDashboardResponse struct {
	PendingRegistrations int `json:"pending_registrations"`
	UnassignedSubjects   int `json:"unassigned_subjects"`
	ActiveSubjects       int `json:"active_subjects"`
}

func (api *registrarApi) dashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	pending := false
	pendingUsers, err := api.opts.UserSvc.Filter(rctx, user.QueryFilter{IsApproved: &pending})
	if err != nil {
		return errors.Wrap(err, "querying pending registrations")
	}

	active := true
	unassigned, err := api.opts.SubjectSvc.Filter(rctx, subject.QueryFilter{IsActive: &active, Unassigned: true})
	if err != nil {
		return errors.Wrap(err, "querying unassigned subjects")
	}

	activeCount, err := api.opts.SubjectSvc.CountActive(rctx)
	if err != nil {
		return errors.Wrap(err, "counting active subjects")
	}

	return ctx.JSON(http.StatusOK, registrarDashboardResponse{
		PendingRegistrations: len(pendingUsers),
		UnassignedSubjects:   len(unassigned),
		ActiveSubjects:       activeCount,
	})
}

func (api *registrarApi) querySubjects(ctx echo.Context) error {
	filter := new(subject.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []subject.Subject{})
	}

	subs, err := api.opts.SubjectSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subs == nil {
		subs = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *registrarApi) assignSubjects(ctx echo.Context) error {
	var data AssignSubjectsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignSubjectsRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	// the assignee must be an actual teacher
	teacher, err := api.opts.UserSvc.GetByID(ctx.Request().Context(), data.TeacherID)
	if err != nil {
		return mapNotFound(err, user.ErrNotFound)
	}
	if !teacher.IsTeacher() {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
	}

	assigned, err := api.opts.SubjectSvc.AssignTeacher(ctx.Request().Context(), data.TeacherID, data.SubjectIDs...)
	if err != nil {
		return mapNotFound(err, subject.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, assigned)
}

func (api *registrarApi) unassignSubject(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	sub, err := api.opts.SubjectSvc.UnassignTeacher(ctx.Request().Context(), id)
	if err != nil {
		return mapNotFound(err, subject.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *registrarApi) unassignByTeacher(ctx echo.Context) error {
	var data UnassignByTeacherRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnassignByTeacherRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	n, err := api.opts.SubjectSvc.UnassignAllFromTeacher(ctx.Request().Context(), data.TeacherID)
	if err != nil {
		return errors.Wrap(err, "unassigning subjects")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: fmt.Sprintf("%d subject(s) unassigned.", n)})
}

func (api *registrarApi) queryPendingRegistrations(ctx echo.Context) error {
	pending := false
	users, err := api.opts.UserSvc.Filter(ctx.Request().Context(), user.QueryFilter{IsApproved: &pending})
	if err != nil {
		return errors.Wrap(err, "querying pending registrations")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *registrarApi) approveRegistration(ctx echo.Context) error {
	var data ApproveRegistrationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRegistrationRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	usr, msg, err := api.opts.UserSvc.Apply(ctx.Request().Context(), data.UserID, data.Action)
	if err != nil {
		return mapNotFound(err, user.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, ManageUserResponse{Message: msg, User: &usr})
}

func (api *registrarApi) queryAcademicRecords(ctx echo.Context) error {
	filter := new(grade.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []grade.Record{})
	}

	records, err := api.opts.GradeRepo.FilterRecords(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying academic records")
	}
	if records == nil {
		records = []grade.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *registrarApi) upsertAcademicRecord(ctx echo.Context) error {
	var data grade.UpsertGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertGrade")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	g := grade.Grade{
		StudentID:       data.StudentID,
		SubjectID:       data.SubjectID,
		QuizScore:       data.QuizScore,
		MidScore:        data.MidScore,
		AssignmentScore: data.AssignmentScore,
		FinalExamScore:  data.FinalExamScore,
		Score:           data.Total(),
		Remarks:         data.Remarks,
		GradedAt:        time.Now().UTC(),
	}
	g, err := api.opts.GradeRepo.UpsertGrade(ctx.Request().Context(), g)
	if err != nil {
		return errors.Wrap(err, "upserting grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *registrarApi) queryWaitlist(ctx echo.Context) error {
	subjectID, err := strconv.Atoi(ctx.Param("subjectID"))
	if err != nil {
		return errHttpNotFound
	}

	entries, err := api.opts.SubjectSvc.Waitlist(ctx.Request().Context(), subjectID)
	if err != nil {
		return errors.Wrap(err, "querying waitlist")
	}
	if entries == nil {
		entries = []subject.WaitlistEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *registrarApi) manageWaitlist(ctx echo.Context) error {
	subjectID, err := strconv.Atoi(ctx.Param("subjectID"))
	if err != nil {
		return errHttpNotFound
	}

	var data WaitlistRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WaitlistRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	switch data.Action {
	case "enqueue":
		entry, err := api.opts.SubjectSvc.Enqueue(rctx, subjectID, data.StudentID)
		if err != nil {
			return errors.Wrap(err, "enqueuing student")
		}
		return ctx.JSON(http.StatusOK, entry)
	default: // dequeue
		if err := api.opts.SubjectSvc.Dequeue(rctx, subjectID, data.StudentID); err != nil {
			return mapNotFound(err, subject.ErrNotWaitlisted)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

func (api *registrarApi) downloadTranscript(ctx echo.Context) error {
	studentID, err := strconv.Atoi(ctx.QueryParam("student_id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	format := core.CleanString(ctx.QueryParam("format"), true /* lower */)
	if format == "" {
		format = report.FormatPDF
	}

	renderer, err := api.opts.Renderers.Get(format)
	if err != nil {
		return core.NewValidationError(err)
	}

	rctx := ctx.Request().Context()
	student, err := api.opts.UserSvc.GetByID(rctx, studentID)
	if err != nil {
		return mapNotFound(err, user.ErrNotFound)
	}

	records, err := api.opts.GradeRepo.FilterRecords(rctx, grade.QueryFilter{StudentID: studentID})
	if err != nil {
		return errors.Wrap(err, "querying grade records")
	}

	doc := report.Transcript(student.Name, records)
	blob, err := renderer.Render(doc)
	if err != nil {
		return errors.Wrap(err, "rendering transcript")
	}

	filename := fmt.Sprintf("%s.%s", doc.Filename, renderer.Ext())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, renderer.ContentType(), blob)
}
