package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/authz"
	"sdp-backend/internal/models"
	"sdp-backend/internal/timeutil"
)

const DefaultAdminSessionTTL = 12 * time.Hour

// AdminService covers operator login and the console's account operations
type AdminService struct {
	Admins     AdminStore
	Accounts   AccountStore
	Challenges OTPStore
	Tokens     VerificationTokenStore
	LoginLogs  LoginLogStore
	Signer     *auth.TokenSigner
	SessionTTL time.Duration
	Now        timeutil.Clock
}

func NewAdminService(
	admins AdminStore,
	accounts AccountStore,
	challenges OTPStore,
	tokens VerificationTokenStore,
	loginLogs LoginLogStore,
	signer *auth.TokenSigner,
	sessionTTL time.Duration,
) *AdminService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultAdminSessionTTL
	}
	return &AdminService{
		Admins:     admins,
		Accounts:   accounts,
		Challenges: challenges,
		Tokens:     tokens,
		LoginLogs:  loginLogs,
		Signer:     signer,
		SessionTTL: sessionTTL,
		Now:        timeutil.Now,
	}
}

type AdminLoginResult struct {
	Token string
	Admin *models.AdminSummary
}

// Login authenticates an operator. The token carries role and permissions
// so the perimeter gate can check it without a database round trip.
func (s *AdminService) Login(ctx context.Context, email, password, ip, userAgent string) (*AdminLoginResult, error) {
	admin, err := s.Admins.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, apperr.ErrNotFound) {
		auth.BurnPasswordCheck(password)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}

	if !auth.VerifyPassword(admin.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if !admin.IsActive {
		log.Printf("[AdminAuth] Suspended admin %s attempted login", admin.ID)
		return nil, apperr.ErrInvalidCredentials
	}

	claims := auth.Claims{
		Kind:        auth.KindAdmin,
		Email:       admin.Email,
		Role:        admin.Role,
		Permissions: admin.Permissions,
	}
	claims.Subject = admin.ID
	token, err := s.Signer.Issue(claims, s.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}

	now := s.Now()
	if err := s.Admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		log.Printf("[AdminAuth] Failed to update last login for %s: %v", admin.ID, err)
	}
	if s.LoginLogs != nil {
		entry := &models.LoginLog{AdminID: admin.ID, LoginTime: now, IPAddress: ip, UserAgent: userAgent}
		if err := s.LoginLogs.Create(ctx, entry); err != nil {
			log.Printf("[AdminAuth] Failed to record login for %s: %v", admin.ID, err)
		}
	}
	admin.LastLogin = &now

	return &AdminLoginResult{Token: token, Admin: admin.Summary()}, nil
}

// Logout closes the operator's open login record
func (s *AdminService) Logout(ctx context.Context, adminID string) {
	if s.LoginLogs == nil || adminID == "" {
		return
	}
	if err := s.LoginLogs.CloseLatest(ctx, adminID, s.Now()); err != nil {
		log.Printf("[AdminAuth] Failed to record logout for %s: %v", adminID, err)
	}
}

// ListAccounts pages through customer accounts
func (s *AdminService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.AccountSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	accounts, err := s.Accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	summaries := make([]*models.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		summaries = append(summaries, a.Summary())
	}
	return summaries, nil
}

// SetAdminActive suspends or restores an operator. Suspension takes effect
// on the next authorized request since every admin route reloads the record.
// An operator can only act on peers of equal or lower rank.
func (s *AdminService) SetAdminActive(ctx context.Context, actorID, targetID string, isActive bool) error {
	if actorID == targetID && !isActive {
		return fmt.Errorf("%w: cannot suspend yourself", apperr.ErrValidation)
	}

	actor, err := s.Admins.GetByID(ctx, actorID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	target, err := s.Admins.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if authz.Rank(actor.Role) < authz.Rank(target.Role) {
		log.Printf("[AdminAuth] Admin %s (%s) denied changing %s (%s)", actor.ID, actor.Role, target.ID, target.Role)
		return apperr.ErrForbidden
	}

	if err := s.Admins.SetActive(ctx, targetID, isActive); err != nil {
		return err
	}
	log.Printf("[AdminAuth] Admin %s set active=%v on %s", actorID, isActive, targetID)
	return nil
}

// VerifyAddress confirms a delivery address after an operator checked it and
// refreshes the owner's gating flags.
func (s *AdminService) VerifyAddress(ctx context.Context, actorID, addressID string) (*models.AccountSummary, error) {
	addr, err := s.Accounts.VerifyAddress(ctx, addressID)
	if err != nil {
		return nil, err
	}
	account, err := s.Accounts.GetByID(ctx, addr.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err := refreshGating(ctx, s.Accounts, account); err != nil {
		return nil, err
	}
	log.Printf("[AdminAuth] Admin %s verified address %s on %s", actorID, addr.ID, account.ID)
	return account.Summary(), nil
}

// PurgeExpired deletes expired OTP challenges and verification tokens
func (s *AdminService) PurgeExpired(ctx context.Context) (*models.PurgeResult, error) {
	now := s.Now()
	otps, err := s.Challenges.PurgeExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("purge otp challenges: %w", err)
	}
	tokens, err := s.Tokens.PurgeExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("purge verification tokens: %w", err)
	}
	log.Printf("[AdminAuth] Purged %d otp challenges and %d verification tokens", otps, tokens)
	return &models.PurgeResult{OTPChallenges: otps, VerificationTokens: tokens}, nil
}
