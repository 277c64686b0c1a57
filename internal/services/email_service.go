package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/gomail.v2"
)

// Notifier delivers a verification code to an address. Implementations must return
// when ctx is done.
type Notifier interface {
	Deliver(ctx context.Context, address, code string) error
}

const (
	otpPlaceholder      = "{{OTP}}"
	defaultEmailSubject = "HomeSync Email Verification"
	defaultEmailFrom    = `"HomeSync" <noreply@homesync.com>`
)

const defaultEmailTemplate = `
		<h2>Verify your HomeSync account</h2>
		<p>Use the following code to verify your email address:</p>
		<p style="font-size:24px;letter-spacing:4px"><strong>{{OTP}}</strong></p>
		<p>The code expires in 10 minutes. If you did not sign up, you can ignore this email.</p>
`

// EmailTemplate is the subject and HTML body of the verification email.
type EmailTemplate struct {
	Subject string
	HTML    string
}

// LoadEmailTemplate reads the HTML body from path; an empty path yields the built-in template.
func LoadEmailTemplate(path string) (EmailTemplate, error) {
	tpl := EmailTemplate{Subject: defaultEmailSubject, HTML: defaultEmailTemplate}
	if strings.TrimSpace(path) == "" {
		return tpl, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return EmailTemplate{}, fmt.Errorf("read email template: %w", err)
	}
	if !strings.Contains(string(b), otpPlaceholder) {
		return EmailTemplate{}, fmt.Errorf("email template %s has no %s placeholder", path, otpPlaceholder)
	}
	tpl.HTML = string(b)
	return tpl, nil
}

// Render substitutes the code into the body.
func (t EmailTemplate) Render(code string) string {
	return strings.Replace(t.HTML, otpPlaceholder, code, 1)
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	dialer   mailSender
	from     string
	template EmailTemplate
}

func NewEmailNotifier(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string, tpl EmailTemplate) *EmailNotifier {
	if fromEmail == "" {
		fromEmail = defaultEmailFrom
	}
	return &EmailNotifier{
		dialer:   gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:     fromEmail,
		template: tpl,
	}
}

func (s *EmailNotifier) message(address, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", address)
	m.SetHeader("Subject", s.template.Subject)
	m.SetBody("text/html", s.template.Render(code))
	return m
}

// Deliver sends the email. gomail has no context support, so the send runs in its own
// goroutine and Deliver returns ctx.Err() if ctx finishes first.
func (s *EmailNotifier) Deliver(ctx context.Context, address, code string) error {
	m := s.message(address, code)
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send verification email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
