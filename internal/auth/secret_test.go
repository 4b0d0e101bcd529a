package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHashSecret(t *testing.T) {
	h := HashSecret("123456")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if strings.Contains(h, "123456") {
		t.Fatal("hash leaks the raw value")
	}
	if !SecretMatches("123456", h) {
		t.Fatal("matching secret rejected")
	}
	if SecretMatches("123457", h) {
		t.Fatal("wrong secret accepted")
	}
}

func TestRandomDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := RandomDigits(6)
		if err != nil {
			t.Fatalf("RandomDigits: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in %q", code)
			}
		}
	}
	if _, err := RandomDigits(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	b, _ := RandomToken(32)
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Fatal("two tokens collided")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secr3t!23")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "Secr3t!23") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "secr3t!23") {
		t.Fatal("wrong password accepted")
	}
	BurnPasswordCheck("anything")
}

func TestSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", 2*time.Hour, true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != "tok" || !c.HttpOnly || !c.Secure ||
		c.SameSite != http.SameSiteLaxMode || c.Path != "/" || c.MaxAge != 7200 {
		t.Fatalf("unexpected cookie: %+v", c)
	}

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, false)
	if c := rec.Result().Cookies()[0]; c.MaxAge >= 0 || c.Value != "" {
		t.Fatalf("cookie not cleared: %+v", c)
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(req); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer header-token")
	if got := TokenFromRequest(req); got != "header-token" {
		t.Fatalf("expected header token, got %q", got)
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	if got := TokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("cookie should win, got %q", got)
	}
}
