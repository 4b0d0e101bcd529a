package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/metrics"
	"sdp-backend/internal/middleware"
	"sdp-backend/internal/models"
	"sdp-backend/internal/services"
	"sdp-backend/pkg/utils"
)

type AuthHandler struct {
	Sessions     *services.SessionService
	Verification *services.EmailVerificationService
	Cookies      CookieConfig
	LandingURL   string
}

func NewAuthHandler(sessions *services.SessionService, verification *services.EmailVerificationService, cookies CookieConfig, landingURL string) *AuthHandler {
	return &AuthHandler{
		Sessions:     sessions,
		Verification: verification,
		Cookies:      cookies,
		LandingURL:   landingURL,
	}
}

// Signup handles customer registration
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	method := services.LoginMethodEmail
	if req.Email == "" {
		method = services.LoginMethodPhone
	}

	result, err := h.Sessions.Signup(r.Context(), services.SignupInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Name:     req.Name,
	})
	metrics.AuthSignupsTotal.WithLabelValues(method, metrics.Result(err)).Inc()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	message := "Account created"
	if result.VerificationSent {
		message = "Account created. Please check your email to verify your address"
	} else if method == services.LoginMethodEmail {
		message = "Account created. We could not send the verification email, please request a new one"
	}

	utils.OK(w, http.StatusCreated, map[string]interface{}{
		"message":          message,
		"account":          result.Account,
		"verificationSent": result.VerificationSent,
	})
}

// Login handles password login by email or phone
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	identifier := req.Email
	method := req.Method
	if req.Method == services.LoginMethodPhone || (req.Method == "" && req.Email == "") {
		identifier = req.Phone
	}
	if identifier == "" {
		utils.WriteError(w, r, apperr.ErrIdentifierRequired)
		return
	}

	result, err := h.Sessions.Login(r.Context(), services.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
		Method:     method,
	})
	metrics.AuthLoginsTotal.WithLabelValues("password", metrics.Result(err)).Inc()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.Cookies.SessionTTL, h.Cookies.Secure)
	utils.OK(w, http.StatusOK, map[string]interface{}{"account": result.Account})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.Cookies.Secure)
	utils.OK(w, http.StatusOK, nil)
}

// Me returns the current account, refreshing its gating flags
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.Sessions.Introspect(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{"account": account})
}

// VerifyEmail redeems the link from the verification email. Success logs the
// customer in and lands them on the storefront.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email, token := q.Get("email"), q.Get("token")
	if email == "" || token == "" {
		h.verifyFailed(w, r, apperr.ErrInvalidToken)
		return
	}

	result, err := h.Verification.Consume(r.Context(), email, token)
	metrics.EmailVerificationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		h.verifyFailed(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.Cookies.SessionTTL, h.Cookies.Secure)
	if h.LandingURL == "" || !utils.WantsHTML(r) {
		utils.OK(w, http.StatusOK, map[string]interface{}{"account": result.Account})
		return
	}
	http.Redirect(w, r, h.LandingURL, http.StatusFound)
}

func (h *AuthHandler) verifyFailed(w http.ResponseWriter, r *http.Request, err error) {
	p, known := apperr.Describe(err)
	if !known || h.LandingURL == "" || !utils.WantsHTML(r) {
		utils.WriteError(w, r, err)
		return
	}
	target, perr := url.Parse(h.LandingURL)
	if perr != nil {
		utils.WriteError(w, r, err)
		return
	}
	values := target.Query()
	values.Set("verifyError", p.Code)
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// ResendVerification answers {ok:true} whether or not the address is known
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req models.ResendVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	if err := h.Verification.Resend(r.Context(), req.Email); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusOK, map[string]interface{}{
		"message": "If the address belongs to an unverified account, a new link is on its way",
	})
}

// AddAddress stores a delivery address for the signed-in customer
func (h *AuthHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.ErrUnauthorized)
		return
	}

	var req models.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	account, err := h.Sessions.AddAddress(r.Context(), accountID, req)
	if errors.Is(err, apperr.ErrNotFound) {
		err = apperr.ErrUnauthorized
	}
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, http.StatusCreated, map[string]interface{}{"account": account})
}
