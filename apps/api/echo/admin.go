package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/notification"
	"github.com/tsfaye/sims/core/report"
	"github.com/tsfaye/sims/core/settings"
	"github.com/tsfaye/sims/core/user"
	emailsvc "github.com/tsfaye/sims/services/email"
)

const recentRegistrationsLimit = 5

type adminApi struct {
	opts *Options
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := adminApi{opts: opts}

	ag := g.Group("/admin", jwt, adminMiddleware())

	ag.GET("/panel", api.panel)

	ag.GET("/users", api.queryUsers)
	ag.POST("/users", api.createUser)
	ag.POST("/users/manage", api.manageUser)

	ag.GET("/settings", api.retrieveSettings)
	ag.POST("/settings", api.updateSettings)

	ag.GET("/reports", api.queryReports)
	ag.GET("/reports/download", api.downloadReport)

	ag.GET("/announcements", api.queryAnnouncements)
	ag.POST("/announcements", api.createAnnouncement)
}

type panelResponse struct {
	Stats          user.Stats                  `json:"stats"`
	ActiveSubjects int                         `json:"active_subjects"`
	Notifications  []notification.Notification `json:"notifications"`
}

func (api *adminApi) panel(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	stats, err := api.opts.UserSvc.GetStats(rctx, recentRegistrationsLimit)
	if err != nil {
		return errors.Wrap(err, "getting user stats")
	}

	activeSubjects, err := api.opts.SubjectSvc.CountActive(rctx)
	if err != nil {
		return errors.Wrap(err, "counting active subjects")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	notifs, err := api.opts.NotifSvc.QueryByUser(rctx, claims.UserID(), 10)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}

	return ctx.JSON(http.StatusOK, panelResponse{
		Stats:          stats,
		ActiveSubjects: activeSubjects,
		Notifications:  notifs,
	})
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()

	users, err := api.opts.UserSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.opts.UserSvc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: "not enough rights to set these roles"})
	}

	usr, err := api.opts.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) manageUser(ctx echo.Context) error {
	var data ManageUserRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManageUserRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete or deactivate themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if data.UserID == claims.UserID() && (data.Action == user.ActionDelete || data.Action == user.ActionDeactivate) {
		return errHttpForbidden
	}

	usr, msg, err := api.opts.UserSvc.Apply(ctx.Request().Context(), data.UserID, data.Action)
	if err != nil {
		return mapNotFound(err, user.ErrNotFound)
	}

	res := ManageUserResponse{Message: msg}
	if data.Action != user.ActionDelete {
		res.User = &usr
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) retrieveSettings(ctx echo.Context) error {
	doc, err := api.opts.SettingsStore.Load()
	res := SettingsResponse{Settings: doc}
	if err != nil {
		if !settings.IsParseError(err) {
			return errors.Wrap(err, "loading settings")
		}
		// malformed file: serve defaults, surface the problem
		res.Warning = err.Error()
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) updateSettings(ctx echo.Context) error {
	var data SettingsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SettingsRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	switch data.Action {
	case "send_test_email":
		to := data.AdminEmail
		if to == "" {
			to = data.Email.DefaultFromEmail
		}
		if err := emailsvc.SendTestMessage(data.Email, to); err != nil {
			return core.NewValidationError(errors.Wrap(err, "test email failed"))
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: fmt.Sprintf("Test email sent to %s.", to)})

	default: // save
		if err := api.opts.SettingsStore.Save(data.Document); err != nil {
			return errors.Wrap(err, "saving settings")
		}

		ctxUsr, err := getContextUser(ctx, api.opts.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if _, err := api.opts.NotifSvc.SettingsChanged(ctx.Request().Context(), ctxUsr); err != nil {
			// settings are saved; the notification is best-effort
			api.opts.Logger.Warn(fmt.Sprintf("settings-changed notification: %v", err))
		}

		doc, _ := api.opts.SettingsStore.Load()
		return ctx.JSON(http.StatusOK, SettingsResponse{Settings: doc})
	}
}

type reportsResponse struct {
	Types   []string       `json:"types"`
	Formats []string       `json:"formats"`
	Preview report.Section `json:"preview"`
}

func (api *adminApi) queryReports(ctx echo.Context) error {
	doc, err := api.opts.Reports.Build(ctx.Request().Context(), report.Request{Type: report.TypeUserBreakdown})
	if err != nil {
		return errors.Wrap(err, "building report preview")
	}

	return ctx.JSON(http.StatusOK, reportsResponse{
		Types:   report.Types,
		Formats: []string{report.FormatCSV, report.FormatHTML, report.FormatPDF, report.FormatXLSX},
		Preview: doc.Sections[0],
	})
}

func (api *adminApi) downloadReport(ctx echo.Context) error {
	var req report.Request
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to report.Request")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	renderer, err := api.opts.Renderers.Get(req.Format)
	if err != nil {
		return core.NewValidationError(err)
	}

	doc, err := api.opts.Reports.Build(ctx.Request().Context(), req)
	if err != nil {
		return errors.Wrap(err, "building report")
	}

	blob, err := renderer.Render(doc)
	if err != nil {
		return errors.Wrap(err, "rendering report")
	}

	filename := fmt.Sprintf("%s.%s", doc.Filename, renderer.Ext())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, renderer.ContentType(), blob)
}

func (api *adminApi) queryAnnouncements(ctx echo.Context) error {
	anns, err := api.opts.NotifSvc.QueryAnnouncements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []notification.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *adminApi) createAnnouncement(ctx echo.Context) error {
	var data notification.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ann, res, err := api.opts.NotifSvc.Broadcast(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "broadcasting announcement")
	}
	return ctx.JSON(http.StatusCreated, AnnouncementResponse{Announcement: ann, Result: res})
}
