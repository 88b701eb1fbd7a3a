// Package settings manages the site-wide configuration document persisted as
// site_settings.json. Unlike core.Config (process configuration, read-only),
// this document is editable at runtime from the admin surface.
package settings

import "github.com/tsfaye/sims/core"

// EmailConfig holds the outbound email transport parameters.
type EmailConfig struct {
	Backend          string `json:"backend" validate:"omitempty,oneof=console smtp sendgrid"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	User             string `json:"user"`
	Password         string `json:"password"`
	UseTLS           bool   `json:"use_tls"`
	UseSSL           bool   `json:"use_ssl"`
	DefaultFromEmail string `json:"default_from_email"`
}

// Document is the flat site-settings key set.
type Document struct {
	SiteName                 string      `json:"site_name"`
	SiteDescription          string      `json:"site_description"`
	AdminEmail               string      `json:"admin_email" validate:"omitempty,email"`
	EnableUserRegistration   bool        `json:"enable_user_registration"`
	RequireAdminApproval     bool        `json:"require_admin_approval"`
	RequireEmailVerification bool        `json:"require_email_verification"`
	MaxLoginAttempts         int         `json:"max_login_attempts" validate:"min=0"`
	MaxCoursesPerStudent     int         `json:"max_courses_per_student" validate:"min=0"`
	GradeScale               string      `json:"grade_scale"`
	PassingGrade             int         `json:"passing_grade" validate:"min=0,max=100"`
	AutoBackupFrequency      string      `json:"auto_backup_frequency"`
	SessionTimeout           int         `json:"session_timeout" validate:"min=0"`
	DefaultFromEmail         string      `json:"default_from_email"`
	Email                    EmailConfig `json:"email"`

	// LegacyEmail mirrors Email under the key older readers expect.
	// It is written on save and dropped on load.
	LegacyEmail *EmailConfig `json:"email_settings,omitempty"`
}

// Defaults returns the document used when no settings file exists yet.
func Defaults() Document {
	return Document{
		SiteName:               "Student Information Management System",
		EnableUserRegistration: true,
		RequireAdminApproval:   true,
		MaxLoginAttempts:       5,
		MaxCoursesPerStudent:   6,
		GradeScale:             "4.0",
		PassingGrade:           60,
		AutoBackupFrequency:    "weekly",
		SessionTimeout:         30,
		DefaultFromEmail:       core.Conf.DefaultFromEmail.Address,
		Email: EmailConfig{
			Backend:          "console",
			DefaultFromEmail: core.Conf.DefaultFromEmail.Address,
		},
	}
}

// Normalize reconciles derived and legacy fields after a load or before a save.
// The legacy mirror wins only when the canonical email block is empty.
func (d *Document) Normalize() {
	if (d.Email == EmailConfig{}) && d.LegacyEmail != nil {
		d.Email = *d.LegacyEmail
	}
	d.LegacyEmail = nil

	if d.DefaultFromEmail == "" {
		d.DefaultFromEmail = d.Email.DefaultFromEmail
	}
	if d.Email.DefaultFromEmail == "" {
		d.Email.DefaultFromEmail = d.DefaultFromEmail
	}
}

func (d Document) Validate() error {
	return core.Validate.Struct(d)
}
