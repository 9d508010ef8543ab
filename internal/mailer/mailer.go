package mailer

import (
	"errors"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("recipient is empty")

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	dialer *gomail.Dialer
}

func New(host string, port int, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}

	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		dialer:   gomail.NewDialer(host, port, username, password),
	}
}

// * Send отправляет HTML письмо одному получателю
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if to == "" {
		return ErrNoRecipient
	}

	msg := m.build(to, subject, htmlBody)

	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) build(to, subject, htmlBody string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.From)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/html", htmlBody)

	return msg
}
