package repositories

import (
	"context"
	"time"

	"sdp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OTPRepository struct {
	DB *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{DB: db}
}

// Create inserts a new OTP challenge
func (r *OTPRepository) Create(ctx context.Context, c *models.OTPChallenge) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
		INSERT INTO otp_challenges(id, mobile, channel, code_hash, purpose, expires_at, max_attempts, status, ip_address, user_agent)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return r.DB.QueryRow(ctx, query,
		c.ID,
		c.Mobile,
		c.Channel,
		c.CodeHash,
		c.Purpose,
		c.ExpiresAt,
		c.MaxAttempts,
		c.Status,
		c.IPAddress,
		c.UserAgent,
	).Scan(&c.CreatedAt)
}

// LatestByMobile retrieves the most recent challenge for a mobile whatever its
// status, so an older code stays unreachable after a newer one was used.
func (r *OTPRepository) LatestByMobile(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	query := `
		SELECT id, mobile, channel, code_hash, purpose, expires_at, attempts, max_attempts, status,
		       ip_address, user_agent, created_at
		FROM otp_challenges
		WHERE mobile = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var c models.OTPChallenge
	err := r.DB.QueryRow(ctx, query, mobile).Scan(
		&c.ID,
		&c.Mobile,
		&c.Channel,
		&c.CodeHash,
		&c.Purpose,
		&c.ExpiresAt,
		&c.Attempts,
		&c.MaxAttempts,
		&c.Status,
		&c.IPAddress,
		&c.UserAgent,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	return &c, nil
}

// IncrementAttempts increments the verification attempt counter
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string) error {
	query := `UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1 AND status = 'pending'`
	_, err := r.DB.Exec(ctx, query, id)
	return err
}

// SetStatus moves a pending challenge to a terminal status. It reports
// false when the challenge already left pending, so a code can never be
// consumed twice even under concurrent verifies.
func (r *OTPRepository) SetStatus(ctx context.Context, id, status string) (bool, error) {
	query := `UPDATE otp_challenges SET status = $1 WHERE id = $2 AND status = 'pending'`
	tag, err := r.DB.Exec(ctx, query, status, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a challenge, used when delivery fails
func (r *OTPRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id)
	return err
}

// PurgeExpired removes challenges past their expiry
func (r *OTPRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
