// Package apperr declares the error kinds surfaced by the auth core and how
// each one is presented to HTTP callers.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrDeliveryFailed     = errors.New("delivery failed")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrMobileTaken        = errors.New("mobile already registered")
	ErrIdentifierRequired = errors.New("email or phone is required")
	ErrInvalidMobile      = errors.New("invalid mobile number")
	ErrValidation         = errors.New("validation failed")
)

// Problem is the caller-visible shape of an error.
type Problem struct {
	Status  int
	Code    string
	Message string
}

var problems = []struct {
	err     error
	problem Problem
}{
	{ErrRateLimited, Problem{http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later."}},
	{ErrInvalidCredentials, Problem{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"}},
	{ErrNotVerified, Problem{http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email before logging in"}},
	{ErrInvalidToken, Problem{http.StatusBadRequest, "INVALID_TOKEN", "Invalid or already used link"}},
	{ErrTokenExpired, Problem{http.StatusBadRequest, "TOKEN_EXPIRED", "This link has expired. Please request a new one"}},
	{ErrInvalidOTP, Problem{http.StatusBadRequest, "INVALID_OTP", "Invalid OTP"}},
	{ErrOTPExpired, Problem{http.StatusBadRequest, "OTP_EXPIRED", "OTP has expired. Please request a new one"}},
	{ErrTooManyAttempts, Problem{http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many attempts. Please request a new OTP"}},
	{ErrUnauthorized, Problem{http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"}},
	{ErrForbidden, Problem{http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource"}},
	{ErrDeliveryFailed, Problem{http.StatusBadGateway, "DELIVERY_FAILED", "Could not deliver the code. Please try again"}},
	{ErrNotFound, Problem{http.StatusNotFound, "NOT_FOUND", "Not found"}},
	{ErrEmailTaken, Problem{http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists"}},
	{ErrMobileTaken, Problem{http.StatusConflict, "PHONE_EXISTS", "An account with this phone already exists"}},
	{ErrIdentifierRequired, Problem{http.StatusBadRequest, "IDENTIFIER_REQUIRED", "Email or phone is required"}},
	{ErrInvalidMobile, Problem{http.StatusBadRequest, "INVALID_MOBILE", "Invalid mobile number"}},
	{ErrValidation, Problem{http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request"}},
}

var internal = Problem{http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong"}

// Describe maps err onto its Problem. Unknown errors become INTERNAL_ERROR
// so store and driver details never reach the caller.
func Describe(err error) (Problem, bool) {
	for _, p := range problems {
		if errors.Is(err, p.err) {
			return p.problem, true
		}
	}
	return internal, false
}
