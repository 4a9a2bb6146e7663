package notification

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gopkg.in/gomail.v2"

	"barbershop-booking-backend/config"
)

// EmailSender defines the interface for dispatching a confirmation email.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends mail through the configured SMTP relay using gomail.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send dispatches a single HTML email.
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	if s.cfg.ReplyTo != "" {
		m.SetHeader("Reply-To", s.cfg.ReplyTo)
	}
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the webpush
// library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}
