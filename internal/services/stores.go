package services

import (
	"context"
	"time"

	"sdp-backend/internal/models"
)

// The services depend on these narrow views of the repositories so tests
// can swap in in-memory fakes. Lookups return apperr.ErrNotFound when
// nothing matches.

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByMobile(ctx context.Context, mobile string) (*models.Account, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	AttachMobile(ctx context.Context, id, mobile string, at time.Time) error
	UpdateGating(ctx context.Context, id string, g models.Gating) error
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	AddAddress(ctx context.Context, addr *models.Address) error
	ListAddresses(ctx context.Context, accountID string) ([]models.Address, error)
	VerifyAddress(ctx context.Context, addressID string) (*models.Address, error)
}

type OTPStore interface {
	Create(ctx context.Context, c *models.OTPChallenge) error
	LatestByMobile(ctx context.Context, mobile string) (*models.OTPChallenge, error)
	IncrementAttempts(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id, status string) (bool, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type VerificationTokenStore interface {
	Replace(ctx context.Context, t *models.VerificationToken) error
	Find(ctx context.Context, accountID, tokenHash string) (*models.VerificationToken, error)
	Delete(ctx context.Context, id string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type AdminStore interface {
	GetByID(ctx context.Context, id string) (*models.AdminAccount, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminAccount, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, isActive bool) error
}

type LoginLogStore interface {
	Create(ctx context.Context, l *models.LoginLog) error
	CloseLatest(ctx context.Context, adminID string, at time.Time) error
}

// OTPSender delivers a code over one channel (SMS or WhatsApp)
type OTPSender interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

// VerificationMailer delivers the email verification link
type VerificationMailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
}
