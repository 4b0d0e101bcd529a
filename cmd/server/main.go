package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdp-backend/internal/auth"
	"sdp-backend/internal/authz"
	"sdp-backend/internal/cache"
	"sdp-backend/internal/config"
	"sdp-backend/internal/database"
	"sdp-backend/internal/db"
	h "sdp-backend/internal/http"
	"sdp-backend/internal/handlers"
	"sdp-backend/internal/health"
	"sdp-backend/internal/mailer"
	"sdp-backend/internal/metrics"
	"sdp-backend/internal/middleware"
	"sdp-backend/internal/models"
	"sdp-backend/internal/ratelimit"
	"sdp-backend/internal/repositories"
	"sdp-backend/internal/services"
	"sdp-backend/internal/sms"
	"sdp-backend/internal/whatsapp"
	"sdp-backend/pkg/utils"

	"github.com/redis/go-redis/v9"
)

func main() {
	migrationsDir := flag.String("migrations", "migrations", "directory holding the SQL migrations")
	flag.Parse()

	cfg := config.Load()
	metrics.MustRegister()
	if err := utils.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalf("[Config] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("[DB] %v", err)
	}
	defer pool.Close()

	if err := database.NewMigrator(pool, *migrationsDir).RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("[Migrations] %v", err)
	}
	cancel()

	// Repositories
	accountRepo := repositories.NewAccountRepository(pool)
	adminRepo := repositories.NewAdminRepository(pool)
	otpRepo := repositories.NewOTPRepository(pool)
	tokenRepo := repositories.NewVerificationTokenRepository(pool)
	loginLogRepo := repositories.NewLoginLogRepository(pool)
	deliveryLogRepo := repositories.NewDeliveryLogRepository(pool)

	// Rate limit buckets live in Redis when it is reachable so every replica
	// shares them; otherwise each process counts on its own
	var rdb *redis.Client
	limitStore := ratelimit.Store(ratelimit.NewMemoryStore(time.Now))
	if cfg.Redis.Enabled {
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = cache.Connect(rctx, cfg)
		rcancel()
		if err != nil {
			log.Printf("[Redis] %v, falling back to in-process rate limits", err)
			rdb = nil
		} else {
			defer rdb.Close()
			limitStore = ratelimit.NewRedisStore(rdb, "sdp:rl:", time.Now)
		}
	}
	limiter := ratelimit.NewLimiter(limitStore)

	signer, err := auth.NewTokenSigner(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Fatalf("[Auth] %v", err)
	}

	// OTP delivery channels
	senders := map[string]services.OTPSender{}
	if cfg.SMS.Provider == "fast2sms" && cfg.SMS.APIKey != "" {
		fast2sms := sms.NewFast2SMSService(cfg.SMS.APIKey)
		fast2sms.SetConfig(&sms.SMSConfig{
			Route:      cfg.SMS.Route,
			SenderID:   cfg.SMS.SenderID,
			TemplateID: cfg.SMS.TemplateID,
		})
		fast2sms.LogRepo = deliveryLogRepo
		senders[models.OTPChannelSMS] = fast2sms
		log.Printf("[SMS] Using Fast2SMS (route %q)", cfg.SMS.Route)
	} else {
		senders[models.OTPChannelSMS] = sms.NewMockSMSService()
		log.Println("[SMS] No provider configured, codes are logged without delivery")
	}
	if wa := whatsapp.CreateOTPSender(cfg.WhatsApp.Provider, cfg.WhatsApp.APIKey, cfg.WhatsApp.Template, deliveryLogRepo); wa != nil {
		senders[models.OTPChannelWhatsApp] = wa
		log.Printf("[WhatsApp] Using %s", wa.GetName())
	}

	var mail services.VerificationMailer = mailer.LogMailer{}
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		log.Printf("[Mail] Using SMTP relay %s", cfg.SMTP.Host)
	} else {
		log.Println("[Mail] SMTP not configured, verification links are logged")
	}

	sessionTTL := time.Duration(cfg.JWT.SessionTTLHours) * time.Hour
	hour := time.Hour

	// Services
	verificationService := services.NewEmailVerificationService(accountRepo, tokenRepo, mail, signer, limiter, services.EmailVerificationConfig{
		TokenTTL:   time.Duration(cfg.Email.TokenTTLMinutes) * time.Minute,
		SessionTTL: sessionTTL,
		VerifyURL:  cfg.Email.VerifyURL,
		ResendRule: ratelimit.Rule{Limit: cfg.RateLimit.ResendPerHour, Window: hour},
	})
	sessionService := services.NewSessionService(accountRepo, verificationService, signer, services.SessionConfig{
		SessionTTL:         sessionTTL,
		DefaultCountryCode: cfg.OTP.DefaultCountryCode,
	})
	otpService := services.NewOTPService(otpRepo, accountRepo, senders, limiter, signer, services.OTPConfig{
		TTL:                time.Duration(cfg.OTP.TTLMinutes) * time.Minute,
		MaxAttempts:        cfg.OTP.MaxAttempts,
		PerMobile:          ratelimit.Rule{Limit: cfg.OTP.PerMobilePerHour, Window: hour},
		PerIP:              ratelimit.Rule{Limit: cfg.OTP.PerIPPerHour, Window: hour},
		DefaultCountryCode: cfg.OTP.DefaultCountryCode,
		SessionTTL:         sessionTTL,
		DevMode:            cfg.OTP.DevMode,
	})
	adminService := services.NewAdminService(adminRepo, accountRepo, otpRepo, tokenRepo, loginLogRepo, signer,
		time.Duration(cfg.JWT.AdminTTLHours)*time.Hour)

	// Handlers
	cookies := handlers.CookieConfig{Secure: cfg.IsProduction(), SessionTTL: sessionTTL}
	authHandler := handlers.NewAuthHandler(sessionService, verificationService, cookies, cfg.Email.LandingURL)
	otpHandler := handlers.NewOTPHandler(otpService, cookies)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminService, signer, cookies)
	adminHandler := handlers.NewAdminHandler(adminService)

	var healthChecker *health.HealthChecker
	if rdb != nil {
		healthChecker = health.NewHealthChecker(pool, rdb)
	} else {
		healthChecker = health.NewHealthChecker(pool, nil)
	}
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Middleware
	authorizer := authz.NewAuthorizer(signer, adminRepo)
	authMiddleware := middleware.NewAuthMiddleware(signer, accountRepo, authorizer, cfg.Edge.LoginPath)
	edgeGate := middleware.NewEdgeGate(signer, cfg.Edge.Prefixes, cfg.Edge.Bypass, cfg.Edge.LoginPath)

	router := h.NewRouter(authHandler, otpHandler, adminAuthHandler, adminHandler, healthHandler,
		authMiddleware, edgeGate, limiter, ratelimit.Rule{Limit: cfg.RateLimit.LoginPerMinute, Window: time.Minute})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s (env: %s)", srv.Addr, cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
