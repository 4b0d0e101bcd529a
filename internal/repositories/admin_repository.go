package repositories

import (
	"context"
	"time"

	"sdp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	DB *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{DB: db}
}

const adminColumns = `id, email, password_hash, name, role, permissions, is_active, last_login, created_at, updated_at`

func scanAdmin(row pgx.Row) (*models.AdminAccount, error) {
	var a models.AdminAccount
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.Permissions,
		&a.IsActive, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AdminRepository) Create(ctx context.Context, a *models.AdminAccount) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = models.RoleStaff
	}
	if a.Permissions == nil {
		a.Permissions = []string{}
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO admin_accounts(id, email, password_hash, name, role, permissions, is_active)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		a.ID, a.Email, a.PasswordHash, a.Name, a.Role, a.Permissions, a.IsActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return conflict(err)
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (*models.AdminAccount, error) {
	return scanAdmin(r.DB.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_accounts WHERE id=$1`, id))
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.AdminAccount, error) {
	return scanAdmin(r.DB.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_accounts WHERE email=$1`, email))
}

// UpdateLastLogin stamps a successful console login
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.Exec(ctx, `UPDATE admin_accounts SET last_login=$1 WHERE id=$2`, at, id)
	return err
}

// SetActive suspends or restores an operator
func (r *AdminRepository) SetActive(ctx context.Context, id string, isActive bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE admin_accounts SET is_active=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		isActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows)
	}
	return nil
}
