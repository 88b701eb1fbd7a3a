package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/user"
)

var ErrNotFound = errors.New("notification not found")

type (
	AnnouncementRepository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		QueryAllAnnouncements(ctx context.Context) ([]Announcement, error)
	}

	Repository interface {
		AnnouncementRepository
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		QueryNotificationsByUser(ctx context.Context, userID, limit int) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
		mail    core.EmailService
		log     core.Logger
	}
)

// SkipReason records a recipient excluded from the email channel.
type SkipReason struct {
	UserID int    `json:"user_id"`
	Reason string `json:"reason"`
}

// DeliveryFailure records a per-recipient failure that did not abort the
// rest of the fan-out.
type DeliveryFailure struct {
	UserID int    `json:"user_id"`
	Stage  string `json:"stage"` // "notification" | "email"
	Error  string `json:"error"`
}

// BroadcastResult is the explicit outcome of a fan-out: how many users were
// resolved, how many in-app rows were created, how many emails were handed to
// the transport, and what was skipped or failed along the way.
type BroadcastResult struct {
	Recipients           int               `json:"recipients"`
	NotificationsCreated int               `json:"notifications_created"`
	EmailsQueued         int               `json:"emails_queued"`
	Skipped              []SkipReason      `json:"skipped,omitempty"`
	Failures             []DeliveryFailure `json:"failures,omitempty"`
}

func NewService(repo Repository, usrRepo user.Repository, mailSvc core.EmailService, log core.Logger) *Service {
	return &Service{repo: repo, usrRepo: usrRepo, mail: mailSvc, log: log}
}

// Broadcast persists the announcement, creates one in-app Notification per
// resolved recipient and sends one email per recipient with an address.
// Per-recipient failures are recorded in the result, never fatal: the
// announcement itself always survives.
func (svc *Service) Broadcast(ctx context.Context, actor user.User, na NewAnnouncement) (Announcement, BroadcastResult, error) {
	now := time.Now().UTC()
	ann := Announcement{
		ID:          uuid.New(),
		Title:       na.Title,
		Content:     na.Content,
		CreatedBy:   actor.ID,
		TargetRoles: na.TargetRoles,
		CreatedAt:   now,
	}
	ann, err := svc.repo.CreateAnnouncement(ctx, ann)
	if err != nil {
		return Announcement{}, BroadcastResult{}, errors.Wrap(err, "creating announcement")
	}

	res := svc.fanOut(ctx, ann, "/users/announcements/")
	return ann, res, nil
}

// SettingsChanged posts the admin-targeted announcement recorded whenever
// system settings are saved, so admins see the change on their dashboards.
func (svc *Service) SettingsChanged(ctx context.Context, actor user.User) (BroadcastResult, error) {
	actorName := actor.Name
	if actorName == "" {
		actorName = actor.Username
	}
	na := NewAnnouncement{
		Title:       "System settings updated",
		Content:     fmt.Sprintf("System settings were updated by %s.", actorName),
		TargetRoles: []string{user.RoleAdmin, user.RoleAdminSuper},
	}
	_, res, err := svc.Broadcast(ctx, actor, na)
	return res, err
}

func (svc *Service) fanOut(ctx context.Context, ann Announcement, link string) BroadcastResult {
	var res BroadcastResult

	recipients, err := svc.resolveRecipients(ctx, ann.TargetRoles)
	if err != nil {
		svc.log.Error(fmt.Sprintf("resolving announcement recipients: %v", err), err)
		return res
	}
	res.Recipients = len(recipients)

	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, usr := range recipients {
		// in-app notification for every resolved user, email or not
		n := Notification{
			ID:        uuid.New(),
			UserID:    usr.ID,
			Title:     ann.Title,
			Message:   ann.Content,
			Link:      link,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := svc.repo.CreateNotification(ctx, n); err != nil {
			svc.log.Warn(fmt.Sprintf("creating notification for user %d: %v", usr.ID, err))
			res.Failures = append(res.Failures, DeliveryFailure{UserID: usr.ID, Stage: "notification", Error: err.Error()})
		} else {
			res.NotificationsCreated++
		}

		if usr.Email == "" {
			res.Skipped = append(res.Skipped, SkipReason{UserID: usr.ID, Reason: "no email address"})
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      ann.Title,
			TemplateName: "announcement",
			TemplateData: map[string]interface{}{
				"Content":  ann.Content,
				"PostedAt": ann.CreatedAt.Format("Jan 02, 2006 15:04"),
			},
		})
		res.EmailsQueued++
	}

	// the email service sends each message independently and logs per-message
	// failures; one bad recipient never blocks the rest
	svc.mail.SendMessages(msgs...)
	return res
}

// resolveRecipients returns the users whose role is in targetRoles, or all
// users when targetRoles is empty.
func (svc *Service) resolveRecipients(ctx context.Context, targetRoles []string) ([]user.User, error) {
	if len(targetRoles) == 0 {
		return svc.usrRepo.QueryAllUsers(ctx)
	}
	return svc.usrRepo.FilterUsers(ctx, user.QueryFilter{Roles: targetRoles})
}

func (svc *Service) QueryAnnouncements(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAllAnnouncements(ctx)
}

func (svc *Service) QueryByUser(ctx context.Context, userID, limit int) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUser(ctx, userID, limit)
}

func (svc *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return svc.repo.MarkNotificationRead(ctx, id, time.Now().UTC())
}
