package notify

import (
	"crypto/tls"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/talkincode/webshop/config"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer delivers through an SMTP relay. The gomail dialer upgrades the
// connection with STARTTLS when the server offers it.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

func NewSMTPMailer(cfg config.SmtpConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPMailer{dialer: d, from: cfg.SenderEmail, name: cfg.SenderName}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.name)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// LogMailer only logs outgoing mail; used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(to, subject, _ string) error {
	zap.L().Info("mail delivery disabled, message dropped",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("namespace", "notify"))
	return nil
}

// NewMailer picks the SMTP mailer when a host is configured.
func NewMailer(cfg config.SmtpConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
