package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer(t *testing.T) {
	cfg := SMTPConfig{Host: "smtp.example.com", Port: "587", User: "bot", Pass: "pw", From: "noreply@example.com"}

	t.Run("send test", func(t *testing.T) {
		m := NewSMTPMailer(cfg)
		var gotAddr, gotFrom string
		var gotTo []string
		var gotMsg []byte
		m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			assert.NotNil(t, a)
			return nil
		}

		require.NoError(t, m.Send(context.Background(), "ada@example.com", "Hallo", "Code: 123456"))
		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, "noreply@example.com", gotFrom)
		assert.Equal(t, []string{"ada@example.com"}, gotTo)
		assert.Contains(t, string(gotMsg), "Subject: Hallo\r\n")
		assert.Contains(t, string(gotMsg), "Code: 123456")
	})

	t.Run("send error test", func(t *testing.T) {
		m := NewSMTPMailer(cfg)
		m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		}
		assert.ErrorContains(t, m.Send(context.Background(), "ada@example.com", "Hallo", "x"), "connection refused")
	})

	t.Run("header injection test", func(t *testing.T) {
		m := NewSMTPMailer(cfg)
		m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			t.Fatal("darf nicht senden")
			return nil
		}
		assert.Error(t, m.Send(context.Background(), "ada@example.com\r\nBcc: x@example.com", "Hallo", "x"))
	})
}

func TestOTPMessage(t *testing.T) {
	subject, body := OTPMessage("654321", 10*time.Minute)
	assert.NotEmpty(t, subject)
	assert.Contains(t, body, "654321")
	assert.Contains(t, body, "10 Minuten")
}
