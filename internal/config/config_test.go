package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Fatalf("expected env secret, got %q", cfg.JWT.Secret)
	}
	if cfg.OTP.TTLMinutes != 10 || cfg.OTP.MaxAttempts != 3 || cfg.OTP.PerMobilePerHour != 3 || cfg.OTP.PerIPPerHour != 10 {
		t.Fatalf("unexpected otp defaults %+v", cfg.OTP)
	}
	if cfg.Email.TokenTTLMinutes != 30 || cfg.RateLimit.LoginPerMinute != 5 {
		t.Fatalf("unexpected defaults email=%+v ratelimit=%+v", cfg.Email, cfg.RateLimit)
	}
	if len(cfg.Edge.Prefixes) != 2 || len(cfg.Edge.Bypass) != 6 {
		t.Fatalf("unexpected edge defaults %+v", cfg.Edge)
	}
	if cfg.IsProduction() {
		t.Fatal("default env should not be production")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error without a signing secret")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("app:\n  env: production\njwt:\n  secret: file-secret\notp:\n  dev_mode: true\n  ttl_minutes: 5\n" +
		"smtp:\n  host: smtp.example.com\nsms:\n  provider: fast2sms\n  api_key: f2s-key\nserver:\n  trusted_proxies: [\"10.0.0.0/8\"]\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("OTP_PER_IP_PER_HOUR", "20")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Secret != "file-secret" || cfg.OTP.TTLMinutes != 5 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.OTP.PerIPPerHour != 20 || cfg.Database.Host != "db.internal" {
		t.Fatalf("env overrides not applied: otp=%+v host=%s", cfg.OTP, cfg.Database.Host)
	}
	if !cfg.IsProduction() || cfg.OTP.DevMode {
		t.Fatal("dev mode must be forced off in production")
	}
	if len(cfg.Server.TrustedProxies) != 1 || cfg.Server.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies %v", cfg.Server.TrustedProxies)
	}
}

func TestLoadProductionRequiresDelivery(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("APP_ENV", "production")

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no smtp", env: map[string]string{"SMS_PROVIDER": "fast2sms", "SMS_API_KEY": "k"}},
		{name: "mock sms", env: map[string]string{"SMTP_HOST": "smtp.example.com"}},
		{name: "fast2sms without key", env: map[string]string{"SMTP_HOST": "smtp.example.com", "SMS_PROVIDER": "fast2sms"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
				t.Fatal("expected production config to be rejected")
			}
		})
	}

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMS_PROVIDER", "fast2sms")
	t.Setenv("SMS_API_KEY", "k")
	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("complete production config rejected: %v", err)
	}
}
