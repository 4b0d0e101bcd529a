package repositories

import (
	"context"
	"time"

	"sdp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	DB *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, email, mobile, password_hash, name, role, email_verified, email_verified_at,
	mobile_verified, mobile_verified_at, profile_complete, can_place_orders, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Mobile, &a.PasswordHash, &a.Name, &a.Role,
		&a.EmailVerified, &a.EmailVerifiedAt, &a.MobileVerified, &a.MobileVerifiedAt,
		&a.ProfileComplete, &a.CanPlaceOrders, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// Create inserts a new account. Duplicate email or mobile returns
// apperr.ErrEmailTaken or apperr.ErrMobileTaken.
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = models.RoleCustomer // Default role
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO accounts(id, email, mobile, password_hash, name, role, email_verified, email_verified_at,
		 mobile_verified, mobile_verified_at, profile_complete, can_place_orders)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		a.ID, a.Email, a.Mobile, a.PasswordHash, a.Name, a.Role, a.EmailVerified, a.EmailVerifiedAt,
		a.MobileVerified, a.MobileVerifiedAt, a.ProfileComplete, a.CanPlaceOrders,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return conflict(err)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return scanAccount(r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email=$1`, email))
}

func (r *AccountRepository) GetByMobile(ctx context.Context, mobile string) (*models.Account, error) {
	return scanAccount(r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE mobile=$1`, mobile))
}

// MarkEmailVerified flips the email verification flag
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET email_verified=TRUE, email_verified_at=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		at, id)
	return err
}

// AttachMobile sets a verified mobile on an existing account
func (r *AccountRepository) AttachMobile(ctx context.Context, id, mobile string, at time.Time) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET mobile=$1, mobile_verified=TRUE, mobile_verified_at=$2, updated_at=CURRENT_TIMESTAMP
		 WHERE id=$3`,
		mobile, at, id)
	return conflict(err)
}

// UpdateGating persists the derived gating flags
func (r *AccountRepository) UpdateGating(ctx context.Context, id string, g models.Gating) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET profile_complete=$1, can_place_orders=$2, updated_at=CURRENT_TIMESTAMP WHERE id=$3`,
		g.ProfileComplete, g.CanPlaceOrders, id)
	return err
}

// List returns accounts newest first
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AddAddress stores a new address for an account
func (r *AccountRepository) AddAddress(ctx context.Context, addr *models.Address) error {
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO account_addresses(id, account_id, label, line1, city, postal_code, verified)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		addr.ID, addr.AccountID, addr.Label, addr.Line1, addr.City, addr.PostalCode, addr.Verified,
	).Scan(&addr.CreatedAt)
}

// VerifyAddress marks one address verified and returns it
func (r *AccountRepository) VerifyAddress(ctx context.Context, addressID string) (*models.Address, error) {
	var a models.Address
	err := r.DB.QueryRow(ctx,
		`UPDATE account_addresses SET verified = TRUE WHERE id = $1
		 RETURNING id, account_id, label, line1, city, postal_code, verified, created_at`,
		addressID,
	).Scan(&a.ID, &a.AccountID, &a.Label, &a.Line1, &a.City, &a.PostalCode, &a.Verified, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListAddresses returns every address on an account
func (r *AccountRepository) ListAddresses(ctx context.Context, accountID string) ([]models.Address, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, label, line1, city, postal_code, verified, created_at
		 FROM account_addresses WHERE account_id=$1 ORDER BY created_at`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Label, &a.Line1, &a.City, &a.PostalCode, &a.Verified, &a.CreatedAt); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}
