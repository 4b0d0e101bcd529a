package handlers

import (
	"net/http"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/metrics"
	"sdp-backend/internal/middleware"
	"sdp-backend/internal/models"
	"sdp-backend/internal/services"
	"sdp-backend/pkg/utils"
)

type AdminAuthHandler struct {
	Admins  *services.AdminService
	Signer  *auth.TokenSigner
	Cookies CookieConfig
}

func NewAdminAuthHandler(admins *services.AdminService, signer *auth.TokenSigner, cookies CookieConfig) *AdminAuthHandler {
	return &AdminAuthHandler{Admins: admins, Signer: signer, Cookies: cookies}
}

// Login handles operator authentication
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	result, err := h.Admins.Login(r.Context(), req.Email, req.Password, utils.ClientIP(r), r.UserAgent())
	metrics.AuthLoginsTotal.WithLabelValues("admin", metrics.Result(err)).Inc()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	// The cookie lives exactly as long as the operator token inside it
	auth.SetSessionCookie(w, result.Token, h.Admins.SessionTTL, h.Cookies.Secure)
	utils.OK(w, http.StatusOK, map[string]interface{}{"admin": result.Admin})
}

// Logout records the logout time when the session is still valid and clears the cookie
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := h.Signer.Verify(auth.TokenFromRequest(r)); ok && claims.Kind == auth.KindAdmin {
		h.Admins.Logout(r.Context(), claims.AccountID())
	}
	auth.ClearSessionCookie(w, h.Cookies.Secure)
	utils.OK(w, http.StatusOK, nil)
}

// Me returns the operator behind the session
func (h *AdminAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.ErrUnauthorized)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"admin": principal.Admin.Summary()})
}
