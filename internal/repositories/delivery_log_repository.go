package repositories

import (
	"context"

	"sdp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeliveryLogRepository struct {
	DB *pgxpool.Pool
}

func NewDeliveryLogRepository(db *pgxpool.Pool) *DeliveryLogRepository {
	return &DeliveryLogRepository{DB: db}
}

// Create records one outbound OTP message
func (r *DeliveryLogRepository) Create(ctx context.Context, l *models.DeliveryLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx,
		`INSERT INTO otp_delivery_logs(id, mobile, channel, provider, status, error_message, reference_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.Mobile, l.Channel, l.Provider, l.Status, l.ErrorMessage, l.ReferenceID)
	return err
}
