package http

import (
	"net/http"

	"sdp-backend/internal/authz"
	"sdp-backend/internal/handlers"
	"sdp-backend/internal/middleware"
	"sdp-backend/internal/models"
	"sdp-backend/internal/ratelimit"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admin capabilities checked on console routes
const (
	PermAccountsRead    = "accounts.read"
	PermAdminsUpdate    = "admins.update"
	PermAddressesVerify = "addresses.verify"
)

// NewRouter wires every route. The returned handler applies the admin edge
// gate before routing.
func NewRouter(
	authHandler *handlers.AuthHandler,
	otpHandler *handlers.OTPHandler,
	adminAuthHandler *handlers.AdminAuthHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	edgeGate *middleware.EdgeGate,
	limiter *ratelimit.Limiter,
	loginRule ratelimit.Rule,
) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.APILogging)
	r.Use(middleware.MetricsMiddleware)

	loginLimit := middleware.RateLimit(limiter, "login", loginRule)

	// Health checks and metrics (no authentication)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public API routes - Customer authentication
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Handle("/signup", loginLimit(http.HandlerFunc(authHandler.Signup))).Methods("POST")
	authAPI.Handle("/login", loginLimit(http.HandlerFunc(authHandler.Login))).Methods("POST")
	authAPI.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	authAPI.HandleFunc("/me", authHandler.Me).Methods("GET")
	authAPI.HandleFunc("/verify-email", authHandler.VerifyEmail).Methods("GET")
	authAPI.HandleFunc("/resend-verification", authHandler.ResendVerification).Methods("POST")
	authAPI.HandleFunc("/otp/request", otpHandler.Request).Methods("POST")
	authAPI.Handle("/otp/verify", loginLimit(http.HandlerFunc(otpHandler.Verify))).Methods("POST")

	// Protected API routes - Customer profile
	profileAPI := r.PathPrefix("/api/profile").Subrouter()
	profileAPI.Use(authMiddleware.Authenticate)
	profileAPI.HandleFunc("/mobile/verify", otpHandler.VerifyProfileMobile).Methods("POST")
	profileAPI.HandleFunc("/addresses", authHandler.AddAddress).Methods("POST")

	// Admin authentication (login/logout bypass the edge gate)
	adminAuthAPI := r.PathPrefix("/api/admin/auth").Subrouter()
	adminAuthAPI.Handle("/login", loginLimit(http.HandlerFunc(adminAuthHandler.Login))).Methods("POST")
	adminAuthAPI.HandleFunc("/logout", adminAuthHandler.Logout).Methods("POST")
	adminAuthAPI.Handle("/me", authMiddleware.RequireAdmin(authz.Requirement{})(http.HandlerFunc(adminAuthHandler.Me))).Methods("GET")
	adminAuthAPI.Handle("/expired", authMiddleware.RequireAdmin(authz.Requirement{Role: models.RoleSuperAdmin})(http.HandlerFunc(adminHandler.PurgeExpired))).Methods("DELETE")

	// Protected API routes - Admin console
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Handle("/accounts", authMiddleware.RequireAdmin(authz.Requirement{Permission: PermAccountsRead})(http.HandlerFunc(adminHandler.ListAccounts))).Methods("GET")
	adminAPI.Handle("/admins/{id}/active", authMiddleware.RequireAdmin(authz.Requirement{Permission: PermAdminsUpdate})(http.HandlerFunc(adminHandler.SetAdminActive))).Methods("PATCH")
	adminAPI.Handle("/addresses/{id}/verify", authMiddleware.RequireAdmin(authz.Requirement{Permission: PermAddressesVerify})(http.HandlerFunc(adminHandler.VerifyAddress))).Methods("PATCH")

	// The edge gate wraps the router itself: mux only runs Use middleware on
	// matched routes, and console pages under /admin are not routed here
	return middleware.PanicRecovery(edgeGate.Handler(r))
}
