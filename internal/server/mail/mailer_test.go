package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	orig := sendMail
	defer func() { sendMail = orig }()

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	m := NewSMTPMailer("mail:25", "noreply@example.com")
	err := m.Send(context.Background(), "user@example.com", "Your code", "123456")
	require.NoError(t, err)

	assert.Equal(t, "mail:25", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: Your code"))
	assert.True(t, strings.Contains(string(gotMsg), "123456"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	orig := sendMail
	defer func() { sendMail = orig }()

	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	m := NewSMTPMailer("mail:25", "noreply@example.com")
	err := m.Send(context.Background(), "user@example.com", "s", "b")
	assert.Error(t, err)
}
