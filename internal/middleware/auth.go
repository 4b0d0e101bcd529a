package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/authz"
	"sdp-backend/internal/models"
	"sdp-backend/pkg/utils"
)

type contextKey string

const AccountIDKey contextKey = "account_id"
const PrincipalKey contextKey = "admin_principal"

// AccountLookup loads customer accounts by id
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

type AuthMiddleware struct {
	signer     *auth.TokenSigner
	accounts   AccountLookup
	authorizer *authz.Authorizer
	loginPath  string
}

func NewAuthMiddleware(signer *auth.TokenSigner, accounts AccountLookup, authorizer *authz.Authorizer, loginPath string) *AuthMiddleware {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &AuthMiddleware{
		signer:     signer,
		accounts:   accounts,
		authorizer: authorizer,
		loginPath:  loginPath,
	}
}

// Authenticate requires a customer session
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.signer.Verify(auth.TokenFromRequest(r))
		if !ok || claims.Kind != auth.KindCustomer {
			utils.WriteError(w, r, apperr.ErrUnauthorized)
			return
		}

		// Check database so removed accounts lose access immediately
		account, err := m.accounts.GetByID(r.Context(), claims.AccountID())
		if errors.Is(err, apperr.ErrNotFound) {
			utils.WriteError(w, r, apperr.ErrUnauthorized)
			return
		}
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), AccountIDKey, account.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin ensures the caller is an active operator satisfying req
func (m *AuthMiddleware) RequireAdmin(req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := m.authorizer.Authorize(r, req)
			if err != nil {
				// For HTML pages, redirect to login
				if errors.Is(err, apperr.ErrUnauthorized) && r.Method == http.MethodGet && utils.WantsHTML(r) {
					http.Redirect(w, r, m.loginPath+"?returnTo="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
					return
				}
				utils.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccountIDFromContext extracts the customer account id from request context
func GetAccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok && id != ""
}

// GetPrincipalFromContext extracts the authorized operator from request context
func GetPrincipalFromContext(ctx context.Context) (*authz.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*authz.Principal)
	return p, ok && p != nil
}
