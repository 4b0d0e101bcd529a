package models

import "time"

// DeliveryLog records one outbound OTP message. The code itself is never stored.
type DeliveryLog struct {
	ID           string    `json:"id"`
	Mobile       string    `json:"mobile"`
	Channel      string    `json:"channel"` // "sms" or "whatsapp"
	Provider     string    `json:"provider"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Delivery status types
const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)
