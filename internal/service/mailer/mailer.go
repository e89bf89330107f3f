package mailer

import (
	mail "github.com/go-mail/mail/v2"
)

// Sender is what the handlers and notifier depend on, so tests can swap in a
// recording fake.
type Sender interface {
	Send(to, subject, body string) error
}

type Mailer struct {
	dialer *mail.Dialer
	from   string
}

func New(host string, port int, username, password, from string) *Mailer {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &Mailer{dialer: d, from: from}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
