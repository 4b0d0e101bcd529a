package repositories

import (
	"context"
	"fmt"
	"time"

	"sdp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerificationTokenRepository struct {
	DB *pgxpool.Pool
}

func NewVerificationTokenRepository(db *pgxpool.Pool) *VerificationTokenRepository {
	return &VerificationTokenRepository{DB: db}
}

// Replace deletes every token for the account and stores t in one
// transaction, so an account never has two live tokens.
func (r *VerificationTokenRepository) Replace(ctx context.Context, t *models.VerificationToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM email_verification_tokens WHERE account_id = $1`, t.AccountID); err != nil {
		return fmt.Errorf("delete old tokens: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO email_verification_tokens(id, account_id, token_hash, expires_at)
		 VALUES($1, $2, $3, $4)
		 RETURNING created_at`,
		t.ID, t.AccountID, t.TokenHash, t.ExpiresAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return tx.Commit(ctx)
}

// Find looks a token up by account and hash. Scoping by account means a
// hash belonging to another account never matches.
func (r *VerificationTokenRepository) Find(ctx context.Context, accountID, tokenHash string) (*models.VerificationToken, error) {
	var t models.VerificationToken
	err := r.DB.QueryRow(ctx,
		`SELECT id, account_id, token_hash, expires_at, created_at
		 FROM email_verification_tokens
		 WHERE account_id = $1 AND token_hash = $2`,
		accountID, tokenHash,
	).Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Delete removes a token. It reports false when the token was already gone.
func (r *VerificationTokenRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM email_verification_tokens WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeExpired removes tokens past their expiry
func (r *VerificationTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM email_verification_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
