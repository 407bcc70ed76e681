package email

import (
	"context"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSendBuildsMessage(t *testing.T) {
	provider := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "billing@propbill.local"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	provider.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotAuth = a
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := provider.Send(context.Background(), []string{"owner@example.com"}, "Invoice INV-1", "<p>hi</p>")
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Invoice INV-1\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "\r\n\r\n<p>hi</p>")
}

func TestSMTPSendRequiresRecipient(t *testing.T) {
	provider := NewSMTP(Config{Host: "mail.local", Port: 25})
	assert.Error(t, provider.Send(context.Background(), nil, "s", "b"))
}

func TestBuildMessageHeaders(t *testing.T) {
	now := time.Date(2025, time.April, 1, 2, 0, 0, 0, time.UTC)
	msg := string(buildMessage("a@x", []string{"b@x", "c@x"}, "Hello", "body", now))

	assert.Contains(t, msg, "To: b@x, c@x\r\n")
	assert.Contains(t, msg, "Date: Tue, 01 Apr 2025 02:00:00 +0000\r\n")
}
