package models

import "time"

// RoleCustomer is the default account role. Accounts may still carry the
// legacy "admin" or "staff" values; they grant nothing, operators live in
// admin_accounts.
const RoleCustomer = "customer"

// Account is a storefront customer. At least one of Email and Mobile is set.
type Account struct {
	ID               string     `json:"id"`
	Email            *string    `json:"email,omitempty"`
	Mobile           *string    `json:"mobile,omitempty"`
	PasswordHash     string     `json:"-"` // Never expose in JSON
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	EmailVerified    bool       `json:"email_verified"`
	EmailVerifiedAt  *time.Time `json:"email_verified_at,omitempty"`
	MobileVerified   bool       `json:"mobile_verified"`
	MobileVerifiedAt *time.Time `json:"mobile_verified_at,omitempty"`
	ProfileComplete  bool       `json:"profile_complete"`
	CanPlaceOrders   bool       `json:"can_place_orders"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AccountSummary is the safe view of an account returned to clients
type AccountSummary struct {
	ID              string  `json:"id"`
	Email           *string `json:"email,omitempty"`
	Mobile          *string `json:"mobile,omitempty"`
	Name            string  `json:"name"`
	EmailVerified   bool    `json:"emailVerified"`
	MobileVerified  bool    `json:"mobileVerified"`
	ProfileComplete bool    `json:"profileComplete"`
	CanPlaceOrders  bool    `json:"canPlaceOrders"`
}

func (a *Account) Summary() *AccountSummary {
	return &AccountSummary{
		ID:              a.ID,
		Email:           a.Email,
		Mobile:          a.Mobile,
		Name:            a.Name,
		EmailVerified:   a.EmailVerified,
		MobileVerified:  a.MobileVerified,
		ProfileComplete: a.ProfileComplete,
		CanPlaceOrders:  a.CanPlaceOrders,
	}
}

// EmailValue returns the email or "" when the account has none
func (a *Account) EmailValue() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}

// MobileValue returns the mobile or "" when the account has none
func (a *Account) MobileValue() string {
	if a.Mobile == nil {
		return ""
	}
	return *a.Mobile
}

// Address is a delivery address. Only its presence and Verified flag matter
// to the auth core.
type Address struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Label      string    `json:"label"`
	Line1      string    `json:"line1"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// SignupRequest represents the request body for customer signup
type SignupRequest struct {
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"omitempty,min=8,max=20"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

// LoginRequest represents the request body for customer login
type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,max=254"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Password string `json:"password" validate:"required,max=72"`
	Method   string `json:"method" validate:"omitempty,oneof=email phone"`
}

// ResendVerificationRequest represents the request body for resending the email link
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// AddressRequest represents the request body for adding an address
type AddressRequest struct {
	Label      string `json:"label" validate:"omitempty,max=50"`
	Line1      string `json:"line1" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=12"`
}
