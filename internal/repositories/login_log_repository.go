package repositories

import (
	"context"
	"time"

	"sdp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoginLogRepository struct {
	DB *pgxpool.Pool
}

func NewLoginLogRepository(db *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

// Create records a new console login
func (r *LoginLogRepository) Create(ctx context.Context, l *models.LoginLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `
		INSERT INTO admin_login_logs (id, admin_id, login_time, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.Exec(ctx, query, l.ID, l.AdminID, l.LoginTime, l.IPAddress, l.UserAgent)
	return err
}

// CloseLatest records logout for the most recent open login of an operator
func (r *LoginLogRepository) CloseLatest(ctx context.Context, adminID string, at time.Time) error {
	query := `
		UPDATE admin_login_logs
		SET logout_time = $2
		WHERE id = (
			SELECT id FROM admin_login_logs
			WHERE admin_id = $1 AND logout_time IS NULL
			ORDER BY login_time DESC
			LIMIT 1
		)
	`
	_, err := r.DB.Exec(ctx, query, adminID, at)
	return err
}
