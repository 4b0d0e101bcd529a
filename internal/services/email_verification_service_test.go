package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdp-backend/internal/apperr"
)

func signupEmail(t *testing.T, h *harness, email string) string {
	t.Helper()
	res, err := h.session.Signup(context.Background(), SignupInput{Email: email, Password: "Secr3t!23"})
	if err != nil {
		t.Fatalf("Signup %s: %v", email, err)
	}
	return res.Account.ID
}

func TestIssueKeepsSingleActiveToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := signupEmail(t, h, "a@x.com")

	first, err := h.verification.Issue(ctx, id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := h.verification.Issue(ctx, id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if h.tokens.Len() != 1 {
		t.Fatalf("expected one stored token, got %d", h.tokens.Len())
	}

	if _, err := h.verification.Consume(ctx, "a@x.com", first); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("superseded token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := h.verification.Consume(ctx, "a@x.com", second); err != nil {
		t.Fatalf("current token: %v", err)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signupEmail(t, h, "a@x.com")
	raw := h.mailedToken(t, "a@x.com")

	if _, err := h.verification.Consume(ctx, "a@x.com", raw); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := h.verification.Consume(ctx, "a@x.com", raw); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("second consume: expected ErrInvalidToken, got %v", err)
	}
}

func TestConsumeExpiredTokenDeletesIt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signupEmail(t, h, "a@x.com")
	raw := h.mailedToken(t, "a@x.com")

	h.clock.Advance(DefaultEmailTokenTTL + time.Second)
	if _, err := h.verification.Consume(ctx, "a@x.com", raw); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if h.tokens.Len() != 0 {
		t.Fatal("expired token left in the store")
	}
	if _, err := h.verification.Consume(ctx, "a@x.com", raw); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after deletion, got %v", err)
	}
}

func TestConsumeIsScopedToAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signupEmail(t, h, "a@x.com")
	signupEmail(t, h, "b@x.com")

	rawA := h.mailedToken(t, "a@x.com")
	if _, err := h.verification.Consume(ctx, "b@x.com", rawA); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("cross-account token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := h.verification.Consume(ctx, "nobody@x.com", rawA); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown email: expected ErrNotFound, got %v", err)
	}
}

func TestResendDoesNotEnumerate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	signupEmail(t, h, "pending@x.com")
	signupEmail(t, h, "done@x.com")
	if _, err := h.verification.Consume(ctx, "done@x.com", h.mailedToken(t, "done@x.com")); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	for _, email := range []string{"ghost@x.com", "done@x.com", "pending@x.com"} {
		if err := h.verification.Resend(ctx, email); err != nil {
			t.Errorf("Resend(%s): %v", email, err)
		}
	}

	if h.mailer.Sent("pending@x.com") != 2 {
		t.Fatalf("expected a second link for the pending account, got %d", h.mailer.Sent("pending@x.com"))
	}
	if h.mailer.Sent("done@x.com") != 1 || h.mailer.Sent("ghost@x.com") != 0 {
		t.Fatal("resend mailed an account that needs no verification")
	}

	h.mailer.Err = errors.New("smtp down")
	if err := h.verification.Resend(ctx, "pending@x.com"); err != nil {
		t.Fatalf("delivery failure leaked to caller: %v", err)
	}
}

func TestResendIsRateLimitedPerEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.verification.Resend(ctx, "ghost@x.com"); err != nil {
			t.Fatalf("resend %d: %v", i+1, err)
		}
	}
	if err := h.verification.Resend(ctx, "GHOST@x.com"); !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := h.verification.Resend(ctx, "other@x.com"); err != nil {
		t.Fatalf("other address throttled: %v", err)
	}

	h.clock.Advance(time.Hour + time.Second)
	if err := h.verification.Resend(ctx, "ghost@x.com"); err != nil {
		t.Fatalf("window did not reset: %v", err)
	}
}
