package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvProduction = "production"

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`

	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		TrustedProxies     []string `mapstructure:"trusted_proxies"` // IPs or CIDRs allowed to set X-Forwarded-For
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		Issuer          string `mapstructure:"issuer"`
		SessionTTLHours int    `mapstructure:"session_ttl_hours"`
		AdminTTLHours   int    `mapstructure:"admin_ttl_hours"`
	} `mapstructure:"jwt"`

	OTP struct {
		TTLMinutes         int    `mapstructure:"ttl_minutes"`
		MaxAttempts        int    `mapstructure:"max_attempts"`
		PerMobilePerHour   int    `mapstructure:"per_mobile_per_hour"`
		PerIPPerHour       int    `mapstructure:"per_ip_per_hour"`
		DefaultCountryCode string `mapstructure:"default_country_code"`
		DevMode            bool   `mapstructure:"dev_mode"`
	} `mapstructure:"otp"`

	Email struct {
		TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
		VerifyURL       string `mapstructure:"verify_url"`
		LandingURL      string `mapstructure:"landing_url"`
	} `mapstructure:"email"`

	RateLimit struct {
		LoginPerMinute int `mapstructure:"login_per_minute"`
		ResendPerHour  int `mapstructure:"resend_per_hour"`
	} `mapstructure:"ratelimit"`

	Edge struct {
		Prefixes  []string `mapstructure:"prefixes"`
		Bypass    []string `mapstructure:"bypass"`
		LoginPath string   `mapstructure:"login_path"`
	} `mapstructure:"edge"`

	SMS struct {
		Provider   string `mapstructure:"provider"` // "fast2sms" or "mock"
		APIKey     string `mapstructure:"api_key"`
		Route      string `mapstructure:"route"`
		SenderID   string `mapstructure:"sender_id"`
		TemplateID string `mapstructure:"template_id"`
	} `mapstructure:"sms"`

	WhatsApp struct {
		Provider string `mapstructure:"provider"` // "aisensy" or "interakt"
		APIKey   string `mapstructure:"api_key"`
		Template string `mapstructure:"template"`
	} `mapstructure:"whatsapp"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`

	Storage SecretStore `mapstructure:"storage"`
}

// IsProduction reports whether the process runs with production safeguards
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

// DatabaseURL builds the pgx connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "sdp_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "sdp-backend")
	v.SetDefault("jwt.session_ttl_hours", 24*7)
	v.SetDefault("jwt.admin_ttl_hours", 12)

	v.SetDefault("otp.ttl_minutes", 10)
	v.SetDefault("otp.max_attempts", 3)
	v.SetDefault("otp.per_mobile_per_hour", 3)
	v.SetDefault("otp.per_ip_per_hour", 10)
	v.SetDefault("otp.default_country_code", "91")
	v.SetDefault("otp.dev_mode", false)

	v.SetDefault("email.token_ttl_minutes", 30)
	v.SetDefault("email.verify_url", "http://localhost:8080/api/auth/verify-email")
	v.SetDefault("email.landing_url", "http://localhost:3000/account")

	v.SetDefault("ratelimit.login_per_minute", 5)
	v.SetDefault("ratelimit.resend_per_hour", 3)

	v.SetDefault("edge.prefixes", []string{"/admin", "/api/admin"})
	v.SetDefault("edge.bypass", []string{
		"/admin/login",
		"/admin/logout",
		"/admin/forgot-password",
		"/api/admin/auth/login",
		"/api/admin/auth/logout",
		"/api/admin/auth/forgot-password",
	})
	v.SetDefault("edge.login_path", "/admin/login")

	v.SetDefault("sms.provider", "mock")
	v.SetDefault("sms.api_key", "")
	v.SetDefault("sms.route", "q")
	v.SetDefault("sms.sender_id", "")
	v.SetDefault("sms.template_id", "")

	v.SetDefault("whatsapp.provider", "aisensy")
	v.SetDefault("whatsapp.api_key", "")
	v.SetDefault("whatsapp.template", "otp_verification")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@localhost")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.jwt_secret_object", "config/jwt_secret.txt")
}

// Load reads configs/config.yaml (optional), .env and the environment.
// A missing signing secret is fatal.
func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	cfg, err := load("configs/config.yaml")
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}
	return cfg
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	// Auto bind environment variables: OTP_TTL_MINUTES -> otp.ttl_minutes
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWT.Secret == "" && cfg.Storage.Configured() {
		log.Printf("[Config] JWT_SECRET not set, fetching from secret store...")
		secret, err := cfg.Storage.FetchJWTSecret()
		if err != nil {
			log.Printf("[Config] Secret store fetch failed: %v", err)
		} else {
			cfg.JWT.Secret = secret
			log.Printf("[Config] JWT secret loaded from secret store")
		}
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET not found in environment, config or secret store")
	}

	if cfg.IsProduction() && cfg.OTP.DevMode {
		log.Printf("[Config] otp.dev_mode ignored in production")
		cfg.OTP.DevMode = false
	}
	if err := checkDelivery(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkDelivery refuses a production config whose OTP or mail channel would
// only log instead of delivering
func checkDelivery(cfg *Config) error {
	if !cfg.IsProduction() {
		return nil
	}
	if cfg.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required in production")
	}
	if cfg.SMS.Provider != "fast2sms" || cfg.SMS.APIKey == "" {
		return fmt.Errorf("sms.provider fast2sms with sms.api_key is required in production")
	}
	return nil
}
