package echoapi

import (
	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/notification"
	"github.com/tsfaye/sims/core/settings"
	"github.com/tsfaye/sims/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	// ManageUserRequest applies one moderation action to one user.
	ManageUserRequest struct {
		UserID int               `json:"user_id" validate:"required"`
		Action user.ManageAction `json:"action" validate:"required"`
	}

	ManageUserResponse struct {
		Message string     `json:"message"`
		User    *user.User `json:"user,omitempty"`
	}

	// SettingsRequest posts the settings form. Action "save" persists the
	// document; "send_test_email" dials with the posted email config.
	SettingsRequest struct {
		Action string `json:"action" validate:"required,oneof=save send_test_email"`
		settings.Document
	}

	// SettingsResponse returns the current document; Warning is set when the
	// underlying file was malformed and defaults were substituted.
	SettingsResponse struct {
		Settings settings.Document `json:"settings"`
		Warning  string            `json:"warning,omitempty"`
	}

	AnnouncementResponse struct {
		Announcement notification.Announcement    `json:"announcement"`
		Result       notification.BroadcastResult `json:"result"`
	}

	AssignSubjectsRequest struct {
		TeacherID  int   `json:"teacher_id" validate:"required"`
		SubjectIDs []int `json:"subject_ids" validate:"required,min=1"`
	}

	UnassignByTeacherRequest struct {
		TeacherID int `json:"teacher_id" validate:"required"`
	}

	ApproveRegistrationRequest struct {
		UserID int               `json:"user_id" validate:"required"`
		Action user.ManageAction `json:"action" validate:"required,oneof=approve disapprove"`
	}

	WaitlistRequest struct {
		StudentID int    `json:"student_id" validate:"required"`
		Action    string `json:"action" validate:"required,oneof=enqueue dequeue"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

func (r *ManageUserRequest) Validate() error {
	if err := core.Validate.Struct(r); err != nil {
		return err
	}
	if !r.Action.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "action", Error: "unknown action"})
	}
	return nil
}

func (r *SettingsRequest) Validate() error {
	return core.Validate.Struct(r)
}
