// Package mailer delivers account verification emails.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig holds the outbound mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an authenticated relay
type SMTPMailer struct {
	config SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{config: cfg, send: smtp.SendMail}
}

// SendVerification emails the verification link to the account owner
func (m *SMTPMailer) SendVerification(ctx context.Context, to, name, link string) error {
	msg := buildMessage(m.config.From, to, "Verify your email address", verificationBody(name, link))
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	// smtp.SendMail has no context; bound it so a stuck relay cannot hold the request
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, envelopeAddress(m.config.From), []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("smtp send: timed out")
	}
}

// LogMailer writes verification links to the log instead of sending them
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, to, _, link string) error {
	log.Printf("[MAIL-DEV] Verification link for %s: %s", to, link)
	return nil
}

func verificationBody(name, link string) string {
	greeting := "Hello,"
	if name = strings.TrimSpace(name); name != "" {
		greeting = "Hello " + name + ","
	}
	return greeting + "\r\n\r\n" +
		"Please confirm your email address by opening the link below:\r\n\r\n" +
		link + "\r\n\r\n" +
		"The link expires in 30 minutes. If you did not create an account, ignore this email.\r\n"
}

func buildMessage(from, to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// envelopeAddress strips a display name: "Shop <no-reply@x.com>" -> "no-reply@x.com"
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i != -1 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}
