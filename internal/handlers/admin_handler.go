package handlers

import (
	"net/http"
	"strconv"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/middleware"
	"sdp-backend/internal/models"
	"sdp-backend/internal/services"
	"sdp-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type AdminHandler struct {
	Admins *services.AdminService
}

func NewAdminHandler(admins *services.AdminService) *AdminHandler {
	return &AdminHandler{Admins: admins}
}

// ListAccounts pages through customer accounts, newest first
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	accounts, err := h.Admins.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// SetAdminActive suspends or reinstates an operator
func (h *AdminHandler) SetAdminActive(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.ErrUnauthorized)
		return
	}

	var req models.SetAdminActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	targetID := mux.Vars(r)["id"]
	if err := h.Admins.SetAdminActive(r.Context(), principal.Admin.ID, targetID, *req.IsActive); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"id": targetID, "isActive": *req.IsActive})
}

// VerifyAddress marks a delivery address as checked by an operator
func (h *AdminHandler) VerifyAddress(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.ErrUnauthorized)
		return
	}

	account, err := h.Admins.VerifyAddress(r.Context(), principal.Admin.ID, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"account": account})
}

// PurgeExpired removes expired OTP challenges and verification tokens
func (h *AdminHandler) PurgeExpired(w http.ResponseWriter, r *http.Request) {
	result, err := h.Admins.PurgeExpired(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"purged": result})
}
