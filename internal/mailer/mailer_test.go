package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestSMTPMailerSendVerification(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Username: "u", Password: "p", From: "Print Shop <no-reply@example.com>"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	link := "https://shop.example.com/api/auth/verify-email?email=a%40x.com&token=abc"
	if err := m.SendVerification(context.Background(), "a@x.com", "Asha", link); err != nil {
		t.Fatalf("SendVerification: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "no-reply@example.com" || len(gotTo) != 1 || gotTo[0] != "a@x.com" {
		t.Fatalf("unexpected envelope addr=%s from=%s to=%v", gotAddr, gotFrom, gotTo)
	}
	body := string(gotMsg)
	if !strings.Contains(body, link) || !strings.Contains(body, "Hello Asha,") || !strings.Contains(body, "To: a@x.com\r\n") {
		t.Fatalf("unexpected message:\n%s", body)
	}
}

func TestSMTPMailerError(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("554 relay denied")
	}
	if err := m.SendVerification(context.Background(), "a@x.com", "", "link"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnvelopeAddress(t *testing.T) {
	for in, want := range map[string]string{
		"no-reply@x.com":        "no-reply@x.com",
		"Shop <no-reply@x.com>": "no-reply@x.com",
		" plain@x.com ":         "plain@x.com",
	} {
		if got := envelopeAddress(in); got != want {
			t.Errorf("envelopeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
