package models

import "time"

// Operator roles, highest first
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleOwner      = "owner"
	RoleStaff      = "staff"
)

// AdminAccount is a back-office operator. It lives apart from Account so the
// customer and operator trust boundaries never mix.
type AdminAccount struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Permissions  []string   `json:"permissions"`
	IsActive     bool       `json:"is_active"` // false = suspended, cannot log in
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AdminSummary is returned to the console after login
type AdminSummary struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (a *AdminAccount) Summary() *AdminSummary {
	perms := a.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &AdminSummary{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		Permissions: perms,
	}
}

// AdminLoginRequest represents the request body for admin login
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// SetAdminActiveRequest toggles an operator's access
type SetAdminActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// PurgeResult reports how many expired records were removed
type PurgeResult struct {
	OTPChallenges      int64 `json:"otpChallenges"`
	VerificationTokens int64 `json:"verificationTokens"`
}
