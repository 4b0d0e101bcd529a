package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/models"
	"sdp-backend/internal/phone"
	"sdp-backend/internal/timeutil"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

const (
	LoginMethodEmail = "email"
	LoginMethodPhone = "phone"
)

type SessionConfig struct {
	SessionTTL         time.Duration
	DefaultCountryCode string
}

// SessionService handles customer signup, password login and session introspection
type SessionService struct {
	Accounts     AccountStore
	Verification *EmailVerificationService
	Signer       *auth.TokenSigner
	Config       SessionConfig
	Now          timeutil.Clock
}

func NewSessionService(accounts AccountStore, verification *EmailVerificationService, signer *auth.TokenSigner, cfg SessionConfig) *SessionService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &SessionService{
		Accounts:     accounts,
		Verification: verification,
		Signer:       signer,
		Config:       cfg,
		Now:          timeutil.Now,
	}
}

type SignupInput struct {
	Email    string
	Phone    string
	Password string
	Name     string
}

type SignupResult struct {
	Account          *models.AccountSummary
	VerificationSent bool
}

type LoginInput struct {
	Identifier string
	Password   string
	Method     string // email or phone; inferred from the identifier when empty
}

type LoginResult struct {
	Token   string
	Account *models.AccountSummary
}

// NormalizeEmail case-folds and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a customer account. Email accounts start unverified and
// get a verification link; a phone number given at signup counts as verified.
func (s *SessionService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	email := NormalizeEmail(in.Email)
	rawPhone := strings.TrimSpace(in.Phone)
	if email == "" && rawPhone == "" {
		return nil, apperr.ErrIdentifierRequired
	}
	if in.Password == "" {
		return nil, apperr.ErrValidation
	}

	now := s.Now()
	account := &models.Account{
		Name: strings.TrimSpace(in.Name),
		Role: models.RoleCustomer,
	}

	if email != "" {
		if _, err := s.Accounts.GetByEmail(ctx, email); err == nil {
			return nil, apperr.ErrEmailTaken
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		account.Email = &email
	}

	if rawPhone != "" {
		mobile, err := phone.Normalize(rawPhone, s.Config.DefaultCountryCode)
		if err != nil {
			return nil, apperr.ErrInvalidMobile
		}
		if _, err := s.Accounts.GetByMobile(ctx, mobile); err == nil {
			return nil, apperr.ErrMobileTaken
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("check mobile: %w", err)
		}
		account.Mobile = &mobile
		account.MobileVerified = true
		account.MobileVerifiedAt = &now
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash
	account.ApplyGating(models.DeriveGating(account, nil))

	if err := s.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	log.Printf("[Auth] Account %s created", account.ID)

	result := &SignupResult{Account: account.Summary()}
	if account.Email != nil {
		if err := s.Verification.Send(ctx, account); err != nil {
			log.Printf("[Auth] Verification email for %s not sent: %v", account.ID, err)
		} else {
			result.VerificationSent = true
		}
	}
	return result, nil
}

// Login checks a password and issues a customer session token. Unknown
// identifiers and wrong passwords fail identically. Email logins also
// require a verified email, checked only after the password matched.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	method := in.Method
	if method == "" {
		method = LoginMethodPhone
		if strings.Contains(in.Identifier, "@") {
			method = LoginMethodEmail
		}
	}

	account, err := s.lookup(ctx, method, in.Identifier)
	if errors.Is(err, apperr.ErrNotFound) {
		auth.BurnPasswordCheck(in.Password)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if account.PasswordHash == "" || !auth.VerifyPassword(account.PasswordHash, in.Password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if method == LoginMethodEmail && !account.EmailVerified {
		return nil, apperr.ErrNotVerified
	}

	token, err := issueCustomerSession(s.Signer, account, s.Config.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Account: account.Summary()}, nil
}

func (s *SessionService) lookup(ctx context.Context, method, identifier string) (*models.Account, error) {
	switch method {
	case LoginMethodEmail:
		email := NormalizeEmail(identifier)
		if email == "" {
			return nil, apperr.ErrNotFound
		}
		return s.Accounts.GetByEmail(ctx, email)
	case LoginMethodPhone:
		mobile, err := phone.Normalize(identifier, s.Config.DefaultCountryCode)
		if err != nil {
			return nil, apperr.ErrNotFound
		}
		return s.Accounts.GetByMobile(ctx, mobile)
	default:
		return nil, apperr.ErrValidation
	}
}

// Introspect resolves a session token to the current account. The account
// is reloaded so a removed account is never trusted from stale claims, and
// the gating flags are recomputed on the way.
func (s *SessionService) Introspect(ctx context.Context, token string) (*models.AccountSummary, error) {
	claims, ok := s.Signer.Verify(token)
	if !ok || claims.Kind != auth.KindCustomer {
		return nil, apperr.ErrUnauthorized
	}

	account, err := s.Accounts.GetByID(ctx, claims.AccountID())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if err := refreshGating(ctx, s.Accounts, account); err != nil {
		return nil, err
	}
	return account.Summary(), nil
}

// AddAddress stores an address on the account and recomputes gating
func (s *SessionService) AddAddress(ctx context.Context, accountID string, req models.AddressRequest) (*models.AccountSummary, error) {
	account, err := s.Accounts.GetByID(ctx, accountID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	addr := &models.Address{
		AccountID:  account.ID,
		Label:      strings.TrimSpace(req.Label),
		Line1:      strings.TrimSpace(req.Line1),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
	}
	if err := s.Accounts.AddAddress(ctx, addr); err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}

	if err := refreshGating(ctx, s.Accounts, account); err != nil {
		return nil, err
	}
	return account.Summary(), nil
}

func issueCustomerSession(signer *auth.TokenSigner, a *models.Account, ttl time.Duration) (string, error) {
	claims := auth.Claims{
		Kind:  auth.KindCustomer,
		Email: a.EmailValue(),
		Phone: a.MobileValue(),
	}
	claims.Subject = a.ID
	token, err := signer.Issue(claims, ttl)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}
