package emailsvc

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/mail"

	"github.com/pkg/errors"
	gomail "gopkg.in/gomail.v2"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/settings"
)

// smtpService delivers over plain SMTP using the transport saved in the site
// settings document, so admins can repoint the server without a redeploy.
type smtpService struct {
	store      settings.Store
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(store settings.Store, logger core.Logger) *smtpService {
	return &smtpService{
		store:      store,
		subjPrefix: "[" + core.Conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				svc.send(*msg)
			}
		}()
	}
}

func (svc smtpService) send(msg core.EmailMessage) {
	doc, err := svc.store.Load()
	if err != nil {
		// defaults still carry a usable from address; warn and carry on
		svc.logger.Warn(fmt.Sprintf("loading email settings: %v", err))
	}
	cfg := doc.Email

	from := cfg.DefaultFromEmail
	if from == "" {
		from = core.Conf.DefaultFromEmail.Address
	}

	m := gomail.NewMessage()
	m.SetHeader("From", (&mail.Address{Name: core.Conf.AppName, Address: from}).String())
	m.SetHeader("To", joinHeaderAddresses(msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", joinHeaderAddresses(msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", joinHeaderAddresses(msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.UseSSL
	if cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	}

	if err := d.DialAndSend(m); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email via %s:%d: %v", cfg.Host, cfg.Port, err), err)
	}
}

func joinHeaderAddresses(addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

// SendTestMessage delivers one synchronous test email with the given
// transport config and reports the outcome, so the settings page can tell the
// admin whether the posted configuration actually works.
func SendTestMessage(cfg settings.EmailConfig, to string) error {
	if to == "" {
		return errors.New("no recipient address configured")
	}

	from := cfg.DefaultFromEmail
	if from == "" {
		from = core.Conf.DefaultFromEmail.Address
	}
	subject := "[" + core.Conf.AppName + "] Test Email"
	body := "This is a test email from " + core.Conf.AppName + ". Your email settings are working."

	if cfg.Backend != "smtp" {
		// console and sendgrid configs have nothing to dial; just log it
		log.Printf("test email to %s: %s", to, body)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", (&mail.Address{Name: core.Conf.AppName, Address: from}).String())
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.UseSSL
	if cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	}
	return errors.Wrapf(d.DialAndSend(m), "sending test email via %s:%d", cfg.Host, cfg.Port)
}

// FromSettings picks the backend named in the site settings document.
// Unknown or empty backends fall back to console.
func FromSettings(store settings.Store, logger core.Logger) core.EmailService {
	doc, err := store.Load()
	if err != nil {
		logger.Warn(fmt.Sprintf("loading email settings: %v", err))
	}
	switch doc.Email.Backend {
	case "smtp":
		return NewSMTPService(store, logger)
	case "sendgrid":
		return NewSendgridService(logger)
	default:
		return NewConsoleService()
	}
}
