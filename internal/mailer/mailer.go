package mailer

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Mailer dispatches one-time reset codes to users.
type Mailer interface {
	SendOTP(to, code string) error
}

// SMTP sends mail through a gomail dialer.
type SMTP struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

// NewSMTP creates an SMTP mailer. Configuration problems surface at send
// time, not construction.
func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{host: host, port: port, user: user, password: password, from: from}
}

// SendOTP emails the reset code to the recipient.
func (m *SMTP) SendOTP(to, code string) error {
	if m.host == "" || m.from == "" {
		return fmt.Errorf("smtp config missing")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password reset code")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Password reset</h2>
    <p>Your one-time code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>The code expires in 10 minutes. If you did not request a reset, ignore this email.</p>
  </div>
</body>
</html>`, code)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Str("to", to).Msg("reset code sent")
	return nil
}

// LogOnly logs instead of sending. Used when SMTP is not configured and in
// tests.
type LogOnly struct{}

// SendOTP records the dispatch without sending anything.
func (LogOnly) SendOTP(to, code string) error {
	log.Info().Str("to", to).Msg("smtp not configured, reset code not sent")
	return nil
}
