// Package mail abstracts outbound email delivery for one-time codes and
// key escrow messages. The engine only depends on the Mailer interface;
// production wiring uses the SMTP implementation, tests use fakes.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer is a minimal SMTP client implementation of Mailer.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer constructs a mailer sending through addr (host:port) as from.
func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := sendMail(m.addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
