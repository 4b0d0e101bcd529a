package services

import (
	"net/url"
	"testing"
	"time"

	"sdp-backend/internal/auth"
	"sdp-backend/internal/models"
	"sdp-backend/internal/ratelimit"
	"sdp-backend/internal/testutil/memstore"
	"sdp-backend/internal/timeutil"
)

type harness struct {
	clock    *timeutil.Manual
	accounts *memstore.Accounts
	otps     *memstore.OTPs
	tokens   *memstore.Tokens
	admins   *memstore.Admins
	logins   *memstore.LoginLogs
	sms      *memstore.Sender
	whatsapp *memstore.Sender
	mailer   *memstore.Mailer
	signer   *auth.TokenSigner

	session      *SessionService
	verification *EmailVerificationService
	otp          *OTPService
	admin        *AdminService
}

func newHarness(t *testing.T, admins ...*models.AdminAccount) *harness {
	t.Helper()

	clock := timeutil.NewManual(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	signer, err := auth.NewTokenSigner("services-test-secret", "sdp-backend")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	signer = signer.WithClock(clock.Now)

	h := &harness{
		clock:    clock,
		accounts: memstore.NewAccounts(),
		otps:     memstore.NewOTPs(),
		tokens:   memstore.NewTokens(),
		admins:   memstore.NewAdmins(admins...),
		logins:   &memstore.LoginLogs{},
		sms:      memstore.NewSender(),
		whatsapp: memstore.NewSender(),
		mailer:   memstore.NewMailer(),
		signer:   signer,
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(clock.Now))

	h.verification = NewEmailVerificationService(h.accounts, h.tokens, h.mailer, signer, limiter, EmailVerificationConfig{
		VerifyURL: "https://shop.test/api/auth/verify-email",
	})
	h.verification.Now = clock.Now

	h.session = NewSessionService(h.accounts, h.verification, signer, SessionConfig{DefaultCountryCode: "91"})
	h.session.Now = clock.Now

	h.otp = NewOTPService(h.otps, h.accounts, map[string]OTPSender{
		models.OTPChannelSMS:      h.sms,
		models.OTPChannelWhatsApp: h.whatsapp,
	}, limiter, signer, OTPConfig{DefaultCountryCode: "91"})
	h.otp.Now = clock.Now

	h.admin = NewAdminService(h.admins, h.accounts, h.otps, h.tokens, h.logins, signer, 0)
	h.admin.Now = clock.Now

	return h
}

// mailedToken pulls the raw token out of the last verification link
func (h *harness) mailedToken(t *testing.T, email string) string {
	t.Helper()
	link := h.mailer.LastLink(email)
	if link == "" {
		t.Fatalf("no verification link mailed to %s", email)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if got := u.Query().Get("email"); got != email {
		t.Fatalf("link carries email %q, want %q", got, email)
	}
	return u.Query().Get("token")
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}
