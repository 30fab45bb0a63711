package main

import (
	"fmt"
	"log/slog"

	"github.com/go-mail/mail/v2"
)

type mailer struct {
	dialer *mail.Dialer
	sender string
}

// newMailer returns a disabled mailer when no SMTP host is configured.
func newMailer(host string, port int, username string, password string, sender string) *mailer {
	if host == "" {
		return &mailer{}
	}
	return &mailer{
		dialer: mail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

// sendWelcome delivers the post-registration greeting in the background.
// Delivery problems are logged and never affect the registration response.
func (m *mailer) sendWelcome(u *user) {
	if m.dialer == nil {
		return
	}
	email, username := u.Email, u.Username
	go func() {
		msg := mail.NewMessage()
		msg.SetHeader("To", email)
		msg.SetHeader("From", m.sender)
		msg.SetHeader("Subject", "Welcome to Task Manager")
		msg.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\nYour account has been created. You can now log in and start adding tasks.\n", username))

		var err error
		for i := 0; i < 3; i++ {
			err = m.dialer.DialAndSend(msg)
			if err == nil {
				return
			}
		}
		slog.Error("welcome mail delivery failed", "to", email, errAttr(err))
	}()
}
