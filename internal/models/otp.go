package models

import "time"

const (
	OTPChannelSMS      = "sms"
	OTPChannelWhatsApp = "whatsapp"

	OTPPurposeLogin   = "login"
	OTPPurposeProfile = "profile"

	OTPStatusPending  = "pending"
	OTPStatusVerified = "verified"
	OTPStatusExpired  = "expired"
)

// OTPChallenge is one issued code for a mobile number. Once Status leaves
// pending the challenge is terminal.
type OTPChallenge struct {
	ID          string    `json:"id"`
	Mobile      string    `json:"mobile"`
	Channel     string    `json:"channel"`
	CodeHash    string    `json:"-"` // Never expose in JSON responses
	Purpose     string    `json:"purpose"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Status      string    `json:"status"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether now is past the challenge's expiry
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// OTPRequestBody represents a request to send an OTP
type OTPRequestBody struct {
	Mobile  string `json:"mobile" validate:"required,max=20"`
	Channel string `json:"channel" validate:"omitempty,oneof=sms whatsapp"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=login profile"`
}

// OTPVerifyRequest represents a request to verify an OTP
type OTPVerifyRequest struct {
	Mobile string `json:"mobile" validate:"required,max=20"`
	OTP    string `json:"otp" validate:"required,numeric,min=4,max=10"`
}
