// Package mailer sends the two transactional emails the platform needs:
// account confirmation links and password-reset links. Delivery is behind an
// interface so deployments without SMTP credentials (and tests) fall back to
// a logging implementation.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
)

// Mailer delivers transactional email.
type Mailer interface {
	SendConfirmation(email, confirmationCode string) error
	SendPasswordReset(email, resetCode string) error
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html><body>
<p>Thank you for registering with Blackplum Wealth!</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">Confirm my email</a></p>
</body></html>`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`<html><body>
<p>A password reset was requested for your account.</p>
<p>Follow the link below to choose a new password. The link expires in 2 hours.</p>
<p><a href="{{.Link}}">Reset my password</a></p>
</body></html>`))

// SMTPMailer sends email through a plain-auth SMTP endpoint.
type SMTPMailer struct {
	Addr     string // host:port
	Host     string // host only, for AUTH
	Sender   string
	Password string
	BaseURL  string // public base URL used to build links
}

func (m *SMTPMailer) SendConfirmation(email, confirmationCode string) error {
	link := fmt.Sprintf("%s/account/confirm?code=%s", m.BaseURL, confirmationCode)
	return m.send(email, "Please confirm your email address!", confirmationTmpl, link)
}

func (m *SMTPMailer) SendPasswordReset(email, resetCode string) error {
	link := fmt.Sprintf("%s/password/change?reset_code=%s", m.BaseURL, resetCode)
	return m.send(email, "Password Reset Link", passwordResetTmpl, link)
}

func (m *SMTPMailer) send(to, subject string, tmpl *template.Template, link string) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, struct{ Link string }{link}); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.Sender, to, subject, body.String())
	auth := smtp.PlainAuth("", m.Sender, m.Password, m.Host)
	return smtp.SendMail(m.Addr, auth, m.Sender, []string{to}, []byte(msg))
}

// LogMailer writes mail intents to the process log instead of delivering
// them. Used when SENDER_EMAIL is unset and in tests.
type LogMailer struct {
	BaseURL string
}

func (m *LogMailer) SendConfirmation(email, confirmationCode string) error {
	log.Printf("mailer: confirmation for %s -> %s/account/confirm?code=%s", email, m.BaseURL, confirmationCode)
	return nil
}

func (m *LogMailer) SendPasswordReset(email, resetCode string) error {
	log.Printf("mailer: password reset for %s -> %s/password/change?reset_code=%s", email, m.BaseURL, resetCode)
	return nil
}
