// Package authz decides whether an operator may use an admin route.
package authz

import (
	"context"
	"errors"
	"net/http"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/models"
)

var roleRank = map[string]int{
	models.RoleSuperAdmin: 3,
	models.RoleAdmin:      2,
	models.RoleOwner:      2,
	models.RoleStaff:      1,
}

// Rank returns the numeric tier of a role; unknown roles rank 0
func Rank(role string) int {
	return roleRank[role]
}

// Grant is what an operator is allowed to do
type Grant struct {
	Role        string
	Permissions []string
}

func GrantFromClaims(c *auth.Claims) Grant {
	return Grant{Role: c.Role, Permissions: c.Permissions}
}

func GrantFromAdmin(a *models.AdminAccount) Grant {
	return Grant{Role: a.Role, Permissions: a.Permissions}
}

// HasPermission reports whether perm is granted. super_admin holds every permission.
func HasPermission(g Grant, perm string) bool {
	if g.Role == models.RoleSuperAdmin {
		return true
	}
	for _, p := range g.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the grant's role ranks at least minRole
func HasRole(g Grant, minRole string) bool {
	rank := Rank(g.Role)
	return rank > 0 && rank >= Rank(minRole)
}

// Requirement is what a route demands. Either field may be empty.
type Requirement struct {
	Permission string
	Role       string
}

// Principal is an authorized operator
type Principal struct {
	Claims *auth.Claims
	Admin  *models.AdminAccount
}

// AdminLookup loads operators by id
type AdminLookup interface {
	GetByID(ctx context.Context, id string) (*models.AdminAccount, error)
}

type Authorizer struct {
	signer *auth.TokenSigner
	admins AdminLookup
}

func NewAuthorizer(signer *auth.TokenSigner, admins AdminLookup) *Authorizer {
	return &Authorizer{signer: signer, admins: admins}
}

// Authorize checks the request's session against req. Missing or invalid
// sessions, unknown and suspended operators are ErrUnauthorized; a valid
// operator lacking the permission or role is ErrForbidden. The operator is
// reloaded so suspensions and permission changes apply immediately.
func (a *Authorizer) Authorize(r *http.Request, req Requirement) (*Principal, error) {
	claims, ok := a.signer.Verify(auth.TokenFromRequest(r))
	if !ok || claims.Kind != auth.KindAdmin {
		return nil, apperr.ErrUnauthorized
	}

	admin, err := a.admins.GetByID(r.Context(), claims.AccountID())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, apperr.ErrUnauthorized
	}

	grant := GrantFromAdmin(admin)
	if req.Permission != "" && !HasPermission(grant, req.Permission) {
		return nil, apperr.ErrForbidden
	}
	if req.Role != "" && !HasRole(grant, req.Role) {
		return nil, apperr.ErrForbidden
	}

	return &Principal{Claims: claims, Admin: admin}, nil
}
