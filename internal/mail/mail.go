// Package mail verschickt Einmalcodes per SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Mailer verschickt eine Textnachricht an einen Empfänger.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

type SMTPMailer struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("ungültiger Header-Wert in Empfänger oder Betreff")
	}

	msg := "From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		body

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Versenden der E-Mail", slog.Any("error", err), slog.String("to", to))
		return fmt.Errorf("smtp send: %w", err)
	}
	slog.InfoContext(ctx, "E-Mail versendet", slog.String("to", to), slog.String("subject", subject))
	return nil
}

// LogMailer schreibt Nachrichten ins Log, wenn kein SMTP-Server konfiguriert ist.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slog.WarnContext(ctx, "SMTP nicht konfiguriert, E-Mail wird nur geloggt",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

// OTPMessage baut Betreff und Text der OTP-Mail.
func OTPMessage(code string, ttl time.Duration) (subject, body string) {
	subject = "Ihr BugPilot-Bestätigungscode"
	body = fmt.Sprintf("Ihr Bestätigungscode lautet: %s\n\nDer Code ist %d Minuten gültig.\n", code, int(ttl.Minutes()))
	return subject, body
}
