package mail

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// Send delivers one rendered email over SMTP and returns the Message-ID it was
// stamped with, so the job row can record what went out.
func (s *EmailSender) Send(to string, email *RenderedEmail) (string, error) {
	messageID := fmt.Sprintf("<%s@beatvault.app>", uuid.New().String())

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", email.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", email.Text)
	m.AddAlternative("text/html", email.HTML)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", to, err)
	}

	return messageID, nil
}
