package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sdp-backend/internal/auth"
	"sdp-backend/internal/authz"
	"sdp-backend/internal/handlers"
	"sdp-backend/internal/health"
	"sdp-backend/internal/middleware"
	"sdp-backend/internal/models"
	"sdp-backend/internal/ratelimit"
	"sdp-backend/internal/services"
	"sdp-backend/internal/testutil/memstore"
)

type okDB struct{}

func (okDB) Ping(context.Context) error { return nil }

type app struct {
	router   http.Handler
	accounts *memstore.Accounts
	sms      *memstore.Sender
	mailer   *memstore.Mailer
}

func newApp(t *testing.T) *app {
	t.Helper()

	signer, err := auth.NewTokenSigner("router-test-secret", "sdp-backend")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	hash, err := auth.HashPassword("operator-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	a := &app{
		accounts: memstore.NewAccounts(),
		sms:      memstore.NewSender(),
		mailer:   memstore.NewMailer(),
	}
	admins := memstore.NewAdmins(
		&models.AdminAccount{ID: "root", Email: "root@shop.test", PasswordHash: hash, Role: models.RoleSuperAdmin, IsActive: true},
		&models.AdminAccount{ID: "staff", Email: "staff@shop.test", PasswordHash: hash, Role: models.RoleStaff, Permissions: []string{PermAccountsRead}, IsActive: true},
		&models.AdminAccount{ID: "ops", Email: "ops@shop.test", PasswordHash: hash, Role: models.RoleStaff, Permissions: []string{PermAdminsUpdate, PermAddressesVerify}, IsActive: true},
	)
	otps := memstore.NewOTPs()
	tokens := memstore.NewTokens()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(time.Now))

	verification := services.NewEmailVerificationService(a.accounts, tokens, a.mailer, signer, limiter, services.EmailVerificationConfig{
		VerifyURL: "https://shop.test/api/auth/verify-email",
	})
	sessions := services.NewSessionService(a.accounts, verification, signer, services.SessionConfig{DefaultCountryCode: "91"})
	otp := services.NewOTPService(otps, a.accounts, map[string]services.OTPSender{models.OTPChannelSMS: a.sms}, limiter, signer, services.OTPConfig{DefaultCountryCode: "91"})
	adminService := services.NewAdminService(admins, a.accounts, otps, tokens, &memstore.LoginLogs{}, signer, 12*time.Hour)

	cookies := handlers.CookieConfig{SessionTTL: time.Hour}
	a.router = NewRouter(
		handlers.NewAuthHandler(sessions, verification, cookies, "https://shop.test/account"),
		handlers.NewOTPHandler(otp, cookies),
		handlers.NewAdminAuthHandler(adminService, signer, cookies),
		handlers.NewAdminHandler(adminService),
		handlers.NewHealthHandler(health.NewHealthChecker(okDB{}, nil)),
		middleware.NewAuthMiddleware(signer, a.accounts, authz.NewAuthorizer(signer, admins), ""),
		middleware.NewEdgeGate(signer, nil, nil, ""),
		limiter,
		ratelimit.Rule{Limit: 5, Window: time.Minute},
	)
	return a
}

type call struct {
	method string
	path   string
	body   interface{}
	cookie *http.Cookie
	html   bool
	ip     string
	header map[string]string
}

func (a *app) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&body).Encode(c.body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.html {
		req.Header.Set("Accept", "text/html")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.ip != "" {
		req.RemoteAddr = c.ip + ":1234"
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
				t.Fatalf("session cookie attributes wrong: %+v", c)
			}
			return c
		}
	}
	t.Fatalf("no session cookie set (status %d, body %s)", rec.Code, rec.Body.String())
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if code == "" {
		if body["ok"] != true {
			t.Fatalf("expected ok=true, got %v", body)
		}
	} else if body["ok"] != false || body["code"] != code {
		t.Fatalf("expected code %s, got %v", code, body)
	}
	return body
}

func TestEmailSignupVerifyAndLogin(t *testing.T) {
	a := newApp(t)

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/signup", body: map[string]string{
		"email": "Buyer@Example.com", "password": "hunter22!", "name": "Asha",
	}}), http.StatusCreated, "")

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/signup", body: map[string]string{
		"email": "buyer@example.com", "password": "another-pass",
	}}), http.StatusConflict, "EMAIL_EXISTS")

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "buyer@example.com", "password": "hunter22!", "method": "email",
	}}), http.StatusForbidden, "EMAIL_NOT_VERIFIED")

	link, err := url.Parse(a.mailer.LastLink("buyer@example.com"))
	if err != nil || link.Query().Get("token") == "" {
		t.Fatalf("bad verification link %v (%v)", link, err)
	}

	rec := a.do(t, call{method: "GET", path: "/api/auth/verify-email?" + link.RawQuery, html: true})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "https://shop.test/account" {
		t.Fatalf("expected redirect to landing, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cookie := sessionCookie(t, rec)

	body := expect(t, a.do(t, call{method: "GET", path: "/api/auth/me", cookie: cookie}), http.StatusOK, "")
	account, _ := body["account"].(map[string]interface{})
	if account["emailVerified"] != true {
		t.Fatalf("account not verified: %v", account)
	}

	// The link is single use
	rec = a.do(t, call{method: "GET", path: "/api/auth/verify-email?" + link.RawQuery})
	expect(t, rec, http.StatusBadRequest, "INVALID_TOKEN")

	rec = a.do(t, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "buyer@example.com", "password": "hunter22!",
	}})
	expect(t, rec, http.StatusOK, "")
	sessionCookie(t, rec)

	rec = a.do(t, call{method: "POST", path: "/api/auth/logout", cookie: cookie})
	expect(t, rec, http.StatusOK, "")
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("logout did not clear cookie: %+v", c)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	a := newApp(t)

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/signup", body: map[string]string{
		"phone": "98123 45678", "password": "hunter22!",
	}}), http.StatusCreated, "")

	unknown := decode(t, a.do(t, call{method: "POST", path: "/api/auth/login", ip: "198.51.100.1", body: map[string]string{
		"phone": "9000000000", "password": "hunter22!",
	}}))
	wrong := decode(t, a.do(t, call{method: "POST", path: "/api/auth/login", ip: "198.51.100.1", body: map[string]string{
		"phone": "9812345678", "password": "wrong-pass",
	}}))
	if unknown["code"] != "INVALID_CREDENTIALS" || unknown["code"] != wrong["code"] || unknown["message"] != wrong["message"] {
		t.Fatalf("responses differ: %v vs %v", unknown, wrong)
	}
}

func TestResendVerificationDoesNotEnumerate(t *testing.T) {
	a := newApp(t)
	for _, email := range []string{"nobody@example.com", "also-nobody@example.com"} {
		expect(t, a.do(t, call{method: "POST", path: "/api/auth/resend-verification", body: map[string]string{"email": email}}), http.StatusOK, "")
	}
	if a.mailer.Sent("nobody@example.com") != 0 {
		t.Fatal("mail sent to unknown address")
	}
}

func TestOTPLoginAndProfileRoutes(t *testing.T) {
	a := newApp(t)

	body := expect(t, a.do(t, call{method: "POST", path: "/api/auth/otp/request", body: map[string]string{"mobile": "9812345678"}}), http.StatusOK, "")
	if body["expiresIn"] != float64(600) {
		t.Fatalf("unexpected expiresIn %v", body["expiresIn"])
	}

	code := a.sms.LastCode("+919812345678")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	expect(t, a.do(t, call{method: "POST", path: "/api/auth/otp/verify", body: map[string]string{"mobile": "9812345678", "otp": wrong}}), http.StatusBadRequest, "INVALID_OTP")

	rec := a.do(t, call{method: "POST", path: "/api/auth/otp/verify", body: map[string]string{"mobile": "9812345678", "otp": code}})
	body = expect(t, rec, http.StatusOK, "")
	if body["created"] != true {
		t.Fatalf("expected a new account, got %v", body)
	}
	cookie := sessionCookie(t, rec)

	expect(t, a.do(t, call{method: "POST", path: "/api/profile/addresses", body: map[string]string{
		"line1": "12 MG Road", "city": "Pune", "postal_code": "411001",
	}}), http.StatusUnauthorized, "UNAUTHORIZED")

	body = expect(t, a.do(t, call{method: "POST", path: "/api/profile/addresses", cookie: cookie, body: map[string]string{
		"line1": "12 MG Road", "city": "Pune", "postal_code": "411001",
	}}), http.StatusCreated, "")
	account, _ := body["account"].(map[string]interface{})
	if account["profileComplete"] != false {
		t.Fatalf("profile cannot be complete without a verified email: %v", account)
	}

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/otp/request", body: map[string]string{"mobile": "12ab"}}), http.StatusBadRequest, "INVALID_MOBILE")
	expect(t, a.do(t, call{method: "POST", path: "/api/auth/otp/request", body: map[string]string{"mobile": "9812345678", "channel": "fax"}}), http.StatusBadRequest, "VALIDATION_ERROR")
}

func (a *app) adminLogin(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := a.do(t, call{method: "POST", path: "/api/admin/auth/login", body: map[string]string{"email": email, "password": "operator-pass"}})
	expect(t, rec, http.StatusOK, "")
	return sessionCookie(t, rec)
}

func TestAdminConsole(t *testing.T) {
	a := newApp(t)
	login := func(email string) *http.Cookie { return a.adminLogin(t, email) }

	expect(t, a.do(t, call{method: "GET", path: "/api/admin/accounts"}), http.StatusUnauthorized, "UNAUTHORIZED")

	rec := a.do(t, call{method: "GET", path: "/admin/dashboard", html: true})
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "/admin/login?returnTo=") {
		t.Fatalf("expected login redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	expect(t, a.do(t, call{method: "POST", path: "/api/admin/auth/login", body: map[string]string{"email": "staff@shop.test", "password": "nope"}}), http.StatusUnauthorized, "INVALID_CREDENTIALS")

	staff := login("staff@shop.test")
	body := expect(t, a.do(t, call{method: "GET", path: "/api/admin/auth/me", cookie: staff}), http.StatusOK, "")
	if admin, _ := body["admin"].(map[string]interface{}); admin["role"] != models.RoleStaff {
		t.Fatalf("unexpected admin %v", body["admin"])
	}
	expect(t, a.do(t, call{method: "GET", path: "/api/admin/accounts", cookie: staff}), http.StatusOK, "")
	expect(t, a.do(t, call{method: "DELETE", path: "/api/admin/auth/expired", cookie: staff}), http.StatusForbidden, "FORBIDDEN")
	expect(t, a.do(t, call{method: "PATCH", path: "/api/admin/admins/root/active", cookie: staff, body: map[string]bool{"is_active": false}}), http.StatusForbidden, "FORBIDDEN")

	root := login("root@shop.test")
	expect(t, a.do(t, call{method: "DELETE", path: "/api/admin/auth/expired", cookie: root}), http.StatusOK, "")
	expect(t, a.do(t, call{method: "PATCH", path: "/api/admin/admins/staff/active", cookie: root, body: map[string]bool{"is_active": false}}), http.StatusOK, "")

	// Suspension applies to the already issued session
	expect(t, a.do(t, call{method: "GET", path: "/api/admin/accounts", cookie: staff}), http.StatusUnauthorized, "UNAUTHORIZED")

	// A customer session never opens the console
	expect(t, a.do(t, call{method: "POST", path: "/api/auth/otp/request", body: map[string]string{"mobile": "9812345678"}}), http.StatusOK, "")
	rec = a.do(t, call{method: "POST", path: "/api/auth/otp/verify", body: map[string]string{"mobile": "9812345678", "otp": a.sms.LastCode("+919812345678")}})
	customer := sessionCookie(t, rec)
	expect(t, a.do(t, call{method: "GET", path: "/api/admin/accounts", cookie: customer}), http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestEdgeGateCoversUnroutedConsolePaths(t *testing.T) {
	a := newApp(t)

	expect(t, a.do(t, call{method: "POST", path: "/admin/reports/export"}), http.StatusUnauthorized, "UNAUTHORIZED")
	expect(t, a.do(t, call{method: "GET", path: "/api/admin/not-a-route"}), http.StatusUnauthorized, "UNAUTHORIZED")

	rec := a.do(t, call{method: "GET", path: "/admin/orders?page=2"})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/admin/login?returnTo="+url.QueryEscape("/admin/orders?page=2") {
		t.Fatalf("expected login redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	// Bypassed pages and an operator session both reach routing
	if rec := a.do(t, call{method: "GET", path: "/admin/login", html: true}); rec.Code != http.StatusNotFound {
		t.Fatalf("login page should pass the gate, got %d", rec.Code)
	}
	root := a.adminLogin(t, "root@shop.test")
	if rec := a.do(t, call{method: "GET", path: "/admin/dashboard", html: true, cookie: root}); rec.Code != http.StatusNotFound {
		t.Fatalf("operator should pass the gate, got %d", rec.Code)
	}
}

func TestAdminSessionCookieMatchesTokenLifetime(t *testing.T) {
	a := newApp(t)
	cookie := a.adminLogin(t, "root@shop.test")
	if cookie.MaxAge != int((12 * time.Hour).Seconds()) {
		t.Fatalf("admin cookie MaxAge %d, want %d", cookie.MaxAge, int((12 * time.Hour).Seconds()))
	}
}

func TestAdminCannotSuspendHigherRank(t *testing.T) {
	a := newApp(t)
	ops := a.adminLogin(t, "ops@shop.test")

	expect(t, a.do(t, call{method: "PATCH", path: "/api/admin/admins/root/active", cookie: ops, body: map[string]bool{"is_active": false}}), http.StatusForbidden, "FORBIDDEN")
	expect(t, a.do(t, call{method: "PATCH", path: "/api/admin/admins/staff/active", cookie: ops, body: map[string]bool{"is_active": false}}), http.StatusOK, "")
}

func TestAdminVerifyAddressRoute(t *testing.T) {
	a := newApp(t)

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/otp/request", body: map[string]string{"mobile": "9812345678"}}), http.StatusOK, "")
	rec := a.do(t, call{method: "POST", path: "/api/auth/otp/verify", body: map[string]string{"mobile": "9812345678", "otp": a.sms.LastCode("+919812345678")}})
	customer := sessionCookie(t, rec)
	body := expect(t, a.do(t, call{method: "POST", path: "/api/profile/addresses", cookie: customer, body: map[string]string{
		"line1": "12 MG Road", "city": "Pune", "postal_code": "411001",
	}}), http.StatusCreated, "")
	account, _ := body["account"].(map[string]interface{})
	id, _ := account["id"].(string)

	addresses, err := a.accounts.ListAddresses(context.Background(), id)
	if err != nil || len(addresses) != 1 {
		t.Fatalf("expected one address, got %d (%v)", len(addresses), err)
	}
	path := "/api/admin/addresses/" + addresses[0].ID + "/verify"

	staff := a.adminLogin(t, "staff@shop.test")
	expect(t, a.do(t, call{method: "PATCH", path: path, cookie: staff}), http.StatusForbidden, "FORBIDDEN")

	ops := a.adminLogin(t, "ops@shop.test")
	body = expect(t, a.do(t, call{method: "PATCH", path: path, cookie: ops}), http.StatusOK, "")
	account, _ = body["account"].(map[string]interface{})
	if account["id"] != id || account["canPlaceOrders"] != false {
		t.Fatalf("ordering needs a verified email too: %v", account)
	}
	if stored, _ := a.accounts.ListAddresses(context.Background(), id); !stored[0].Verified {
		t.Fatal("address not verified")
	}

	expect(t, a.do(t, call{method: "PATCH", path: "/api/admin/addresses/missing/verify", cookie: ops}), http.StatusNotFound, "NOT_FOUND")
}

func TestLoginRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	a := newApp(t)
	creds := map[string]string{"email": "ghost@example.com", "password": "whatever1"}

	for i := 0; i < 5; i++ {
		expect(t, a.do(t, call{method: "POST", path: "/api/auth/login", ip: "203.0.113.9", body: creds,
			header: map[string]string{"X-Forwarded-For": fmt.Sprintf("192.0.2.%d", i)}}), http.StatusUnauthorized, "INVALID_CREDENTIALS")
	}
	expect(t, a.do(t, call{method: "POST", path: "/api/auth/login", ip: "203.0.113.9", body: creds,
		header: map[string]string{"X-Forwarded-For": "192.0.2.99", "X-Real-IP": "192.0.2.98"}}), http.StatusTooManyRequests, "RATE_LIMITED")
}

func TestLoginRateLimit(t *testing.T) {
	a := newApp(t)
	creds := map[string]string{"email": "ghost@example.com", "password": "whatever1"}

	for i := 0; i < 5; i++ {
		expect(t, a.do(t, call{method: "POST", path: "/api/auth/login", ip: "203.0.113.5", body: creds}), http.StatusUnauthorized, "INVALID_CREDENTIALS")
	}
	rec := a.do(t, call{method: "POST", path: "/api/auth/login", ip: "203.0.113.5", body: creds})
	expect(t, rec, http.StatusTooManyRequests, "RATE_LIMITED")
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}

	expect(t, a.do(t, call{method: "POST", path: "/api/auth/login", ip: "203.0.113.6", body: creds}), http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func TestHealthRoutes(t *testing.T) {
	a := newApp(t)
	for _, p := range []string{"/health", "/health/ready", "/health/detailed"} {
		if rec := a.do(t, call{method: "GET", path: p}); rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", p, rec.Code)
		}
	}
}
