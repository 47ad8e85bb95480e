// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
)

// # Definitions & Constructors

// Limiters holds one scoped throttle per public auth endpoint group.
type Limiters struct {
	Login         middleware.ScopeLimiter
	ResendOTP     middleware.ScopeLimiter
	EmailVerify   middleware.ScopeLimiter
	PhoneVerify   middleware.ScopeLimiter
	PasswordReset middleware.ScopeLimiter
}

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Login and its second factor, token rotation, signed email links, phone
// verification and social sign-in. Registration lives in the account package.
type Handler struct {
	authService *Service
	limiters    Limiters
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, limiters Limiters) *Handler {
	return &Handler{authService: service, limiters: limiters}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Login and session
	router.With(middleware.Throttle(handler.limiters.Login, "Too many login attempts.")).
		Post("/login", handler.login)
	router.With(middleware.Throttle(handler.limiters.ResendOTP, "Too many OTP resend requests.")).
		Post("/resend-otp", handler.resendOTP)
	router.Post("/token", handler.exchangeOTP)
	router.Post("/token/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/social-auth", handler.socialAuth)

	// Email links
	router.Get("/email-verify", handler.verifyEmail)
	router.With(middleware.Throttle(handler.limiters.EmailVerify, "Too many email verification requests.")).
		Post("/email-verify", handler.requestEmailVerification)

	router.Get("/password-reset", handler.validatePasswordReset)
	router.With(middleware.Throttle(handler.limiters.PasswordReset, "Too many password reset requests.")).
		Post("/password-reset", handler.requestPasswordReset)
	router.Patch("/password-reset", handler.resetPassword)

	// Phone
	router.Group(func(group chi.Router) {
		group.Use(middleware.RequireAuth)
		group.With(middleware.Throttle(handler.limiters.PhoneVerify, "Too many phone verification requests.")).
			Post("/phone-verify", handler.sendPhoneOTP)
		group.Patch("/phone-verify", handler.verifyPhone)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	UserID string `json:"user_id"`
	OTP    string `json:"otp"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"c_password"`
}

type phoneOTPRequest struct {
	OTP string `json:"otp"`
}

type socialRequest struct {
	Token    string `json:"token"`
	Provider string `json:"provider"`
}

// # Login and Session

/*
POST /api/v1/auth/login.

Description: Authenticates with email and password. Accounts with 2FA receive
an OTP challenge instead of tokens.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: TokenPair or OTPChallenge
  - 400: Invalid credentials or account state
  - 429: Throttled
  - 500: OTP delivery failed
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if result.Challenge != nil {
		respond.OK(writer, result.Challenge)
		return
	}
	respond.OK(writer, result.Tokens)
}

/*
POST /api/v1/auth/resend-otp.

Request:
  - Body: otpRequest (UserID)

Response:
  - 200: OTPChallenge
  - 400: Session expired
  - 429: A code was sent less than a minute ago
*/
func (handler *Handler) resendOTP(writer http.ResponseWriter, request *http.Request) {
	var input otpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	challenge, err := handler.authService.ResendOTP(request.Context(), input.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, challenge)
}

/*
POST /api/v1/auth/token.

Description: Exchanges an emailed OTP for a token pair.

Request:
  - Body: otpRequest (UserID, OTP)

Response:
  - 200: TokenPair
  - 400: Invalid OTP or session expired
*/
func (handler *Handler) exchangeOTP(writer http.ResponseWriter, request *http.Request) {
	var input otpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokens, err := handler.authService.ExchangeOTP(request.Context(), input.UserID, input.OTP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokens)
}

/*
POST /api/v1/auth/token/refresh.

Request:
  - Body: refreshRequest (Refresh)

Response:
  - 200: TokenPair
  - 401: Invalid refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokens, err := handler.authService.Refresh(request.Context(), input.Refresh)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokens)
}

/*
POST /api/v1/auth/logout.

Description: Blacklists the presented refresh token.

Response:
  - 200: Message
  - 401: Invalid refresh token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), input.Refresh); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Logged out successfully.")
}

/*
POST /api/v1/auth/social-auth.

Request:
  - Body: socialRequest (Token, Provider)

Response:
  - 200: TokenPair
  - 400: Unsupported provider, rejected token or provider mismatch
*/
func (handler *Handler) socialAuth(writer http.ResponseWriter, request *http.Request) {
	var input socialRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokens, err := handler.authService.SocialLogin(request.Context(), SocialInput{
		Provider: input.Provider,
		Token:    input.Token,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokens)
}

// # Email Links

// GET /api/v1/auth/email-verify?token=
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.VerifyEmail(request.Context(), request.URL.Query().Get("token")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Email verified successfully.")
}

// POST /api/v1/auth/email-verify
func (handler *Handler) requestEmailVerification(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestEmailVerification(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Email verification link sent.")
}

// GET /api/v1/auth/password-reset?token=
func (handler *Handler) validatePasswordReset(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.ValidatePasswordReset(request.Context(), request.URL.Query().Get("token")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Password reset link is valid.")
}

// POST /api/v1/auth/password-reset
func (handler *Handler) requestPasswordReset(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SendPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Password reset link sent.")
}

/*
PATCH /api/v1/auth/password-reset.

Request:
  - Body: resetPasswordRequest (Token, Password, ConfirmPassword)

Response:
  - 200: Message
  - 400: Weak password, mismatch, expired or invalid link
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.ResetPassword(request.Context(), ResetPasswordInput{
		Token:           input.Token,
		Password:        input.Password,
		ConfirmPassword: input.ConfirmPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Password reset successfully.")
}

// # Phone

// POST /api/v1/auth/phone-verify
func (handler *Handler) sendPhoneOTP(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SendPhoneOTP(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "OTP sent to your phone number.")
}

// PATCH /api/v1/auth/phone-verify
func (handler *Handler) verifyPhone(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input phoneOTPRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyPhone(request.Context(), userID, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Phone number verified successfully.")
}
