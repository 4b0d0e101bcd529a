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

type OTPHandler struct {
	OTP     *services.OTPService
	Cookies CookieConfig
}

func NewOTPHandler(otp *services.OTPService, cookies CookieConfig) *OTPHandler {
	return &OTPHandler{OTP: otp, Cookies: cookies}
}

// Request sends a one-time code to a mobile number
func (h *OTPHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req models.OTPRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = models.OTPChannelSMS
	}

	result, err := h.OTP.Request(r.Context(), services.OTPRequestInput{
		Mobile:    req.Mobile,
		Channel:   channel,
		Purpose:   req.Purpose,
		IP:        utils.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	metrics.OTPRequestsTotal.WithLabelValues(channel, metrics.Result(err)).Inc()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.OK(w, http.StatusOK, map[string]interface{}{
		"expiresIn": int(result.ExpiresIn.Seconds()),
	})
}

// Verify redeems a code, logging in or creating the phone account
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.OTPVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	result, err := h.OTP.Verify(r.Context(), req.Mobile, req.OTP)
	metrics.AuthLoginsTotal.WithLabelValues("otp", metrics.Result(err)).Inc()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.Cookies.SessionTTL, h.Cookies.Secure)
	utils.OK(w, http.StatusOK, map[string]interface{}{
		"account": result.Account,
		"created": result.Created,
	})
}

// VerifyProfileMobile attaches a verified mobile to the signed-in account
func (h *OTPHandler) VerifyProfileMobile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.ErrUnauthorized)
		return
	}

	var req models.OTPVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	account, err := h.OTP.VerifyForAccount(r.Context(), accountID, req.Mobile, req.OTP)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"account": account})
}
