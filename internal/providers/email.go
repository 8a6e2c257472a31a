package providers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"escalation-service/internal/config"
	"escalation-service/internal/models"
)

// Email is a plain SMTP messaging backend, registered dynamically in the
// channel registry.
type Email struct {
	cfg config.Config
}

func NewEmail(cfg config.Config) *Email {
	return &Email{cfg: cfg}
}

func (e *Email) Notify(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	if !strings.Contains(user.Email, "@") {
		return fmt.Errorf("invalid email address for user %d", user.ID)
	}

	smtpServer := e.cfg.Email.SMTPServer
	smtpPort := e.cfg.Email.SMTPPort
	username := e.cfg.Email.Username
	password := e.cfg.Email.Password
	if smtpServer == "" || smtpPort == 0 || username == "" || password == "" {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}

	subject := fmt.Sprintf("Alert: %s", alert.Title)
	body := fmt.Sprintf("You are invited to check the alert: %s", alert.Title)
	message := fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		user.Email, e.cfg.Email.FromName, subject, body)

	auth := smtp.PlainAuth("", username, password, smtpServer)
	addr := fmt.Sprintf("%s:%d", smtpServer, smtpPort)
	if err := smtp.SendMail(addr, auth, username, []string{user.Email}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", user.Email, err)
	}
	return nil
}
