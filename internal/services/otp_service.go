package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/models"
	"sdp-backend/internal/phone"
	"sdp-backend/internal/ratelimit"
	"sdp-backend/internal/timeutil"
)

const (
	OTPLength          = 6
	DefaultOTPTTL      = 10 * time.Minute
	DefaultOTPAttempts = 3
)

type OTPConfig struct {
	TTL                time.Duration
	MaxAttempts        int
	PerMobile          ratelimit.Rule // default 3/hour
	PerIP              ratelimit.Rule // default 10/hour
	DefaultCountryCode string
	SessionTTL         time.Duration
	// DevMode writes plaintext codes to the log for manual testing. It is
	// forced off in production by the config layer.
	DevMode bool
}

// OTPService issues and verifies phone one-time passcodes
type OTPService struct {
	Challenges OTPStore
	Accounts   AccountStore
	Senders    map[string]OTPSender // keyed by channel
	Limiter    *ratelimit.Limiter
	Signer     *auth.TokenSigner
	Config     OTPConfig
	Now        timeutil.Clock
}

func NewOTPService(
	challenges OTPStore,
	accounts AccountStore,
	senders map[string]OTPSender,
	limiter *ratelimit.Limiter,
	signer *auth.TokenSigner,
	cfg OTPConfig,
) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultOTPTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultOTPAttempts
	}
	if cfg.PerMobile.Limit <= 0 {
		cfg.PerMobile = ratelimit.Rule{Limit: 3, Window: time.Hour}
	}
	if cfg.PerIP.Limit <= 0 {
		cfg.PerIP = ratelimit.Rule{Limit: 10, Window: time.Hour}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &OTPService{
		Challenges: challenges,
		Accounts:   accounts,
		Senders:    senders,
		Limiter:    limiter,
		Signer:     signer,
		Config:     cfg,
		Now:        timeutil.Now,
	}
}

type OTPRequestInput struct {
	Mobile    string
	Channel   string
	Purpose   string
	IP        string
	UserAgent string
}

type OTPRequestResult struct {
	Mobile    string
	ExpiresIn time.Duration
}

type OTPLoginResult struct {
	Token   string
	Account *models.AccountSummary
	Created bool
}

// Request sends a fresh code to the mobile. If delivery fails the challenge
// is deleted again so no valid code exists that the user never received.
func (s *OTPService) Request(ctx context.Context, in OTPRequestInput) (*OTPRequestResult, error) {
	mobile, err := phone.Normalize(in.Mobile, s.Config.DefaultCountryCode)
	if err != nil {
		return nil, apperr.ErrInvalidMobile
	}

	channel := in.Channel
	if channel == "" {
		channel = models.OTPChannelSMS
	}
	sender, ok := s.Senders[channel]
	if !ok {
		return nil, apperr.ErrValidation
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = models.OTPPurposeLogin
	}

	if err := s.checkLimits(ctx, mobile, in.IP); err != nil {
		return nil, err
	}

	code, err := auth.RandomDigits(OTPLength)
	if err != nil {
		return nil, err
	}

	challenge := &models.OTPChallenge{
		Mobile:      mobile,
		Channel:     channel,
		CodeHash:    auth.HashSecret(code),
		Purpose:     purpose,
		ExpiresAt:   s.Now().Add(s.Config.TTL),
		MaxAttempts: s.Config.MaxAttempts,
		Status:      models.OTPStatusPending,
		IPAddress:   optional(in.IP),
		UserAgent:   optional(in.UserAgent),
	}
	if err := s.Challenges.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("store otp challenge: %w", err)
	}

	if err := sender.SendOTP(ctx, mobile, code); err != nil {
		if delErr := s.Challenges.Delete(ctx, challenge.ID); delErr != nil {
			log.Printf("[OTP] Failed to roll back challenge %s: %v", challenge.ID, delErr)
		}
		log.Printf("[OTP] Delivery via %s failed: %v", channel, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrDeliveryFailed, err)
	}

	if s.Config.DevMode {
		log.Printf("[OTP-DEV] Code for %s: %s", mobile, code)
	}

	return &OTPRequestResult{Mobile: mobile, ExpiresIn: s.Config.TTL}, nil
}

func (s *OTPService) checkLimits(ctx context.Context, mobile, ip string) error {
	res, err := s.Limiter.TakeKey(ctx, "otp-mobile:"+mobile, s.Config.PerMobile)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !res.Allowed {
		log.Printf("[OTP] Per-mobile limit hit for %s", mobile)
		return apperr.ErrRateLimited
	}

	if ip == "" {
		return nil
	}
	res, err = s.Limiter.TakeKey(ctx, "otp-ip:"+ip, s.Config.PerIP)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !res.Allowed {
		log.Printf("[OTP] Per-IP limit hit for %s", ip)
		return apperr.ErrRateLimited
	}
	return nil
}

// consume checks code against the newest challenge for mobile. Only the
// newest one is considered, pending or not, which is what makes a resend
// invalidate earlier codes for good.
func (s *OTPService) consume(ctx context.Context, mobile, code string) error {
	challenge, err := s.Challenges.LatestByMobile(ctx, mobile)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("load otp challenge: %w", err)
	}
	if challenge.Status != models.OTPStatusPending {
		return apperr.ErrInvalidOTP
	}

	if challenge.Expired(s.Now()) {
		if _, err := s.Challenges.SetStatus(ctx, challenge.ID, models.OTPStatusExpired); err != nil {
			log.Printf("[OTP] Failed to expire challenge %s: %v", challenge.ID, err)
		}
		return apperr.ErrOTPExpired
	}

	limit := challenge.MaxAttempts
	if limit <= 0 {
		limit = s.Config.MaxAttempts
	}
	if challenge.Attempts >= limit {
		return apperr.ErrTooManyAttempts
	}

	if !auth.SecretMatches(code, challenge.CodeHash) {
		if err := s.Challenges.IncrementAttempts(ctx, challenge.ID); err != nil {
			return fmt.Errorf("record otp attempt: %w", err)
		}
		return apperr.ErrInvalidOTP
	}

	ok, err := s.Challenges.SetStatus(ctx, challenge.ID, models.OTPStatusVerified)
	if err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	if !ok {
		// Another request consumed it first
		return apperr.ErrInvalidOTP
	}
	return nil
}

// Verify completes a phone-first login. The account for the mobile is
// created on first use.
func (s *OTPService) Verify(ctx context.Context, rawMobile, code string) (*OTPLoginResult, error) {
	mobile, err := phone.Normalize(rawMobile, s.Config.DefaultCountryCode)
	if err != nil {
		return nil, apperr.ErrInvalidMobile
	}
	if err := s.consume(ctx, mobile, code); err != nil {
		return nil, err
	}

	now := s.Now()
	created := false
	account, err := s.Accounts.GetByMobile(ctx, mobile)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		account = &models.Account{
			Mobile:           &mobile,
			Role:             models.RoleCustomer,
			MobileVerified:   true,
			MobileVerifiedAt: &now,
		}
		if err := s.Accounts.Create(ctx, account); err != nil {
			return nil, err
		}
		created = true
		log.Printf("[OTP] Account %s created by phone login", account.ID)
	case err != nil:
		return nil, fmt.Errorf("find account: %w", err)
	case !account.MobileVerified:
		if err := s.Accounts.AttachMobile(ctx, account.ID, mobile, now); err != nil {
			return nil, err
		}
		account.MobileVerified = true
		account.MobileVerifiedAt = &now
	}

	if err := refreshGating(ctx, s.Accounts, account); err != nil {
		return nil, err
	}

	token, err := issueCustomerSession(s.Signer, account, s.Config.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &OTPLoginResult{Token: token, Account: account.Summary(), Created: created}, nil
}

// VerifyForAccount attaches a verified mobile to a signed-in account
func (s *OTPService) VerifyForAccount(ctx context.Context, accountID, rawMobile, code string) (*models.AccountSummary, error) {
	mobile, err := phone.Normalize(rawMobile, s.Config.DefaultCountryCode)
	if err != nil {
		return nil, apperr.ErrInvalidMobile
	}

	account, err := s.Accounts.GetByID(ctx, accountID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if err := s.consume(ctx, mobile, code); err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.Accounts.AttachMobile(ctx, account.ID, mobile, now); err != nil {
		return nil, err
	}
	account.Mobile = &mobile
	account.MobileVerified = true
	account.MobileVerifiedAt = &now

	if err := refreshGating(ctx, s.Accounts, account); err != nil {
		return nil, err
	}
	return account.Summary(), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
