package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/models"
	"sdp-backend/internal/ratelimit"
	"sdp-backend/internal/timeutil"
)

const (
	DefaultEmailTokenTTL = 30 * time.Minute
	emailTokenBytes      = 32
)

type EmailVerificationConfig struct {
	TokenTTL   time.Duration
	SessionTTL time.Duration
	VerifyURL  string // link target, receives ?email=&token=
	ResendRule ratelimit.Rule
}

// EmailVerificationService issues and consumes single-use email verification tokens
type EmailVerificationService struct {
	Accounts AccountStore
	Tokens   VerificationTokenStore
	Mailer   VerificationMailer
	Signer   *auth.TokenSigner
	Limiter  *ratelimit.Limiter
	Config   EmailVerificationConfig
	Now      timeutil.Clock
}

func NewEmailVerificationService(
	accounts AccountStore,
	tokens VerificationTokenStore,
	mailer VerificationMailer,
	signer *auth.TokenSigner,
	limiter *ratelimit.Limiter,
	cfg EmailVerificationConfig,
) *EmailVerificationService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultEmailTokenTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ResendRule.Limit <= 0 {
		cfg.ResendRule = ratelimit.Rule{Limit: 3, Window: time.Hour}
	}
	return &EmailVerificationService{
		Accounts: accounts,
		Tokens:   tokens,
		Mailer:   mailer,
		Signer:   signer,
		Limiter:  limiter,
		Config:   cfg,
		Now:      timeutil.Now,
	}
}

// ConsumeResult is returned after a successful verification. Token is a
// fresh customer session since verifying also logs the user in.
type ConsumeResult struct {
	Token   string
	Account *models.AccountSummary
}

// Issue replaces any existing token for the account and returns the raw
// value for the outbound link. Only its hash is stored.
func (s *EmailVerificationService) Issue(ctx context.Context, accountID string) (string, error) {
	raw, err := auth.RandomToken(emailTokenBytes)
	if err != nil {
		return "", err
	}

	token := &models.VerificationToken{
		AccountID: accountID,
		TokenHash: auth.HashSecret(raw),
		ExpiresAt: s.Now().Add(s.Config.TokenTTL),
	}
	if err := s.Tokens.Replace(ctx, token); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return raw, nil
}

// Send issues a token for the account and mails the verification link
func (s *EmailVerificationService) Send(ctx context.Context, a *models.Account) error {
	if a.Email == nil {
		return fmt.Errorf("account %s has no email", a.ID)
	}
	raw, err := s.Issue(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := s.Mailer.SendVerification(ctx, *a.Email, a.Name, s.link(*a.Email, raw)); err != nil {
		log.Printf("[EmailVerification] Delivery failed for account %s: %v", a.ID, err)
		return fmt.Errorf("%w: %v", apperr.ErrDeliveryFailed, err)
	}
	return nil
}

func (s *EmailVerificationService) link(email, raw string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", raw)
	return s.Config.VerifyURL + "?" + q.Encode()
}

// Consume checks a raw token against the account's stored hash. On success
// the account is marked verified, the token is deleted and a session token
// is issued.
func (s *EmailVerificationService) Consume(ctx context.Context, email, raw string) (*ConsumeResult, error) {
	email = NormalizeEmail(email)
	if email == "" || raw == "" {
		return nil, apperr.ErrInvalidToken
	}

	account, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash := auth.HashSecret(raw)
	token, err := s.Tokens.Find(ctx, account.ID, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	if !auth.SecretMatches(raw, token.TokenHash) {
		return nil, apperr.ErrInvalidToken
	}

	now := s.Now()
	if token.Expired(now) {
		if _, err := s.Tokens.Delete(ctx, token.ID); err != nil {
			log.Printf("[EmailVerification] Failed to delete expired token: %v", err)
		}
		return nil, apperr.ErrTokenExpired
	}

	// Delete first: whoever removes the row owns the verification.
	deleted, err := s.Tokens.Delete(ctx, token.ID)
	if err != nil {
		return nil, fmt.Errorf("delete verification token: %w", err)
	}
	if !deleted {
		return nil, apperr.ErrInvalidToken
	}

	if err := s.Accounts.MarkEmailVerified(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	account.EmailVerified = true
	account.EmailVerifiedAt = &now

	if err := refreshGating(ctx, s.Accounts, account); err != nil {
		return nil, err
	}

	session, err := issueCustomerSession(s.Signer, account, s.Config.SessionTTL)
	if err != nil {
		return nil, err
	}

	log.Printf("[EmailVerification] Account %s verified", account.ID)
	return &ConsumeResult{Token: session, Account: account.Summary()}, nil
}

// Resend mails a fresh link when the account exists and is unverified. The
// caller sees the same outcome for unknown and already verified addresses.
func (s *EmailVerificationService) Resend(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperr.ErrValidation
	}

	res, err := s.Limiter.TakeKey(ctx, "resend:"+email, s.Config.ResendRule)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !res.Allowed {
		return apperr.ErrRateLimited
	}

	account, err := s.Accounts.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if account.EmailVerified {
		return nil
	}

	if err := s.Send(ctx, account); err != nil {
		// Surfacing this would tell the caller the address exists.
		log.Printf("[EmailVerification] Resend for account %s not delivered: %v", account.ID, err)
	}
	return nil
}
