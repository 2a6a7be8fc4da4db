package notification

import (
	"context"
	"fmt"
	"net/smtp"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type EmailService struct {
	config EmailConfig
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// NotifyHostOfWaitingGuest emails the project owner that a guest has entered
// the lobby and is waiting for admission.
func (s *EmailService) NotifyHostOfWaitingGuest(_ context.Context, hostEmail, guestName, projectName string) error {
	subject := fmt.Sprintf("%s is waiting in the lobby of %s", guestName, projectName)
	body := fmt.Sprintf(`<html><body>
		<h2>A guest is waiting in your project lobby</h2>
		<p><strong>%s</strong> has entered the lobby of <strong>%s</strong> and is waiting to be let in.</p>
		<p>Open the project to admit or dismiss them.</p>
	</body></html>`, guestName, projectName)
	return s.sendEmail(hostEmail, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
