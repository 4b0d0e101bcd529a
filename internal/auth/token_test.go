package auth

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"sdp-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSigner(t *testing.T, clock *timeutil.Manual) *TokenSigner {
	t.Helper()
	s, err := NewTokenSigner("unit-test-secret", "sdp-backend")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	return s.WithClock(clock.Now)
}

func subject(id string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: id}
}

func TestNewTokenSignerRequiresSecret(t *testing.T) {
	if _, err := NewTokenSigner("", "sdp-backend"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	clock := timeutil.NewManual(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	signer := newTestSigner(t, clock)

	cases := []Claims{
		{Kind: KindCustomer, Email: "a@x.com"},
		{Kind: KindCustomer, Phone: "+919812345678"},
		{Kind: KindAdmin, Email: "ops@x.com", Role: "staff", Permissions: []string{"orders.read", "orders.update"}},
		{Kind: KindAdmin, Email: "root@x.com", Role: "super_admin"},
	}

	for i, in := range cases {
		in.Subject = "acct-" + string(rune('a'+i))
		token, err := signer.Issue(in, 15*time.Minute)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}

		got, ok := signer.Verify(token)
		if !ok {
			t.Fatalf("case %d: fresh token rejected", i)
		}
		if got.Subject != in.Subject || got.Kind != in.Kind || got.Email != in.Email ||
			got.Phone != in.Phone || got.Role != in.Role || !reflect.DeepEqual(got.Permissions, in.Permissions) {
			t.Fatalf("case %d: claims changed in transit: %+v", i, got)
		}
		if got.ExpiresAt == nil || got.IssuedAt == nil {
			t.Fatalf("case %d: iat/exp not set", i)
		}
	}
}

func TestTokenExpires(t *testing.T) {
	clock := timeutil.NewManual(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	signer := newTestSigner(t, clock)

	token, err := signer.Issue(Claims{Kind: KindCustomer, RegisteredClaims: subject("acct-1")}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.Advance(59 * time.Minute)
	if _, ok := signer.Verify(token); !ok {
		t.Fatal("token rejected before expiry")
	}

	clock.Advance(time.Minute)
	if _, ok := signer.Verify(token); ok {
		t.Fatal("token accepted at expiry")
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	clock := timeutil.NewManual(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	signer := newTestSigner(t, clock)

	token, err := signer.Issue(Claims{Kind: KindAdmin, Role: "staff", Permissions: []string{"orders.read"}, RegisteredClaims: subject("admin-1")}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three segments, got %d", len(parts))
	}

	// Flip every bit of the payload and signature, one at a time.
	for _, seg := range []int{1, 2} {
		raw, err := base64.RawURLEncoding.DecodeString(parts[seg])
		if err != nil {
			t.Fatalf("decode segment %d: %v", seg, err)
		}
		for i := 0; i < len(raw)*8; i++ {
			mutated := append([]byte(nil), raw...)
			mutated[i/8] ^= 1 << (i % 8)

			forged := append([]string(nil), parts...)
			forged[seg] = base64.RawURLEncoding.EncodeToString(mutated)
			if _, ok := signer.Verify(strings.Join(forged, ".")); ok {
				t.Fatalf("segment %d bit %d: tampered token accepted", seg, i)
			}
		}
	}
}

func TestTokenRejectsMalformedAndForeign(t *testing.T) {
	clock := timeutil.NewManual(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	signer := newTestSigner(t, clock)

	other, _ := NewTokenSigner("some-other-secret", "sdp-backend")
	foreign, err := other.WithClock(clock.Now).Issue(Claims{Kind: KindCustomer, RegisteredClaims: subject("acct-1")}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	good, _ := signer.Issue(Claims{Kind: KindCustomer, RegisteredClaims: subject("acct-1")}, time.Hour)
	parts := strings.Split(good, ".")

	for name, token := range map[string]string{
		"empty":          "",
		"one segment":    "abc",
		"two segments":   parts[0] + "." + parts[1],
		"four segments":  good + ".x",
		"foreign secret": foreign,
		"alg none":       base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`)) + "." + parts[1] + ".",
	} {
		if _, ok := signer.Verify(token); ok {
			t.Errorf("%s: token accepted", name)
		}
	}
}

func TestIssueRejectsNonPositiveTTL(t *testing.T) {
	clock := timeutil.NewManual(time.Now())
	signer := newTestSigner(t, clock)
	if _, err := signer.Issue(Claims{Kind: KindCustomer}, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
