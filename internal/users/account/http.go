// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the HTTP delivery layer for user administration.

# Security

Registration is public and throttled per client IP. Every other endpoint
requires an authenticated session; deletion additionally requires a superuser.
*/
package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pagination"
)

// Handler implements the HTTP layer for account management.
type Handler struct {
	accountService *Service
	createLimiter  middleware.ScopeLimiter
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, createLimiter middleware.ScopeLimiter) *Handler {
	return &Handler{accountService: service, createLimiter: createLimiter}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Registration
	router.With(middleware.Throttle(handler.createLimiter, "Too many user creation requests.")).
		Post("/", handler.create)

	router.Group(func(group chi.Router) {
		group.Use(middleware.RequireAuth)

		// Profiles
		group.Get("/", handler.list)
		group.Get("/{id}", handler.get)
		group.Patch("/{id}", handler.update)
		group.With(middleware.RequireRole(sec.RoleSuperuser)).Delete("/{id}", handler.delete)

		// Lifecycle
		group.Post("/{id}/activate-user", handler.transition(handler.accountService.Activate))
		group.Post("/{id}/deactivate-user", handler.transition(handler.accountService.Deactivate))
		group.Post("/{id}/strike-user", handler.transition(handler.accountService.Strike))
		group.Post("/{id}/unstrike-user", handler.transition(handler.accountService.Unstrike))
	})

	return router
}

// # Registration

// createRequest defines the expected JSON payload for sign-up.
type createRequest struct {
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Bio             string  `json:"bio"`
	PhoneNumber     *string `json:"phone_number"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"c_password"`
	IsStaff         bool    `json:"is_staff"`
}

/*
POST /api/v1/users.

Description: Registers an inactive account and emails a verification link.

Request:
  - body: createRequest

Response:
  - 201: Message: Account created
  - 400: Validation or password confirmation failure
  - 403: Forbidden field present
  - 409: Email, username or phone already used
  - 429: Throttled
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createRequest
	fields, err := requestutil.DecodeJSONFields(request, &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err = handler.accountService.Create(request.Context(), requestutil.Claims(request), CreateInput{
		Fields:          fields,
		Email:           input.Email,
		Username:        input.Username,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Bio:             input.Bio,
		PhoneNumber:     input.PhoneNumber,
		Password:        input.Password,
		ConfirmPassword: input.ConfirmPassword,
		IsStaff:         input.IsStaff,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusCreated, respond.MessageEnvelope{
		Message: "User created successfully. Please verify your email to activate your account.",
	})
}

// # Profiles

/*
GET /api/v1/users.

Description: Lists accounts. Staff receive the administrative summary, other
members the public profile.

Response:
  - 200: Paginated list
  - 401: Authentication required
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	accounts, total, err := handler.accountService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	meta := pagination.NewMeta(params.Page, params.Limit, total)

	if sec.ParseRole(claims.Role).IsStaff() {
		summaries := make([]AdminSummary, 0, len(accounts))
		for _, item := range accounts {
			summaries = append(summaries, item.Summary())
		}
		respond.Paginated(writer, summaries, meta)
		return
	}

	profiles := make([]PublicProfile, 0, len(accounts))
	for _, item := range accounts {
		profiles = append(profiles, item.Public())
	}
	respond.Paginated(writer, profiles, meta)
}

/*
GET /api/v1/users/{id}.

Description: Returns the full record to the account itself or a superuser,
and the public profile to everyone else.

Response:
  - 200: Account or PublicProfile
  - 404: User not found
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Get(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if CanViewPrivate(claims, account) {
		respond.OK(writer, account)
		return
	}
	respond.OK(writer, account.Public())
}

// updateRequest defines the expected JSON payload for profile updates.
type updateRequest struct {
	Username    *string `json:"username"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Bio         *string `json:"bio"`
	PhoneNumber *string `json:"phone_number"`
	IsTwoFA     *bool   `json:"is_two_fa"`
	IsNotiOn    *bool   `json:"is_noti_on"`
}

/*
PATCH /api/v1/users/{id}.

Description: Applies a partial profile update.

Response:
  - 200: Account: The updated record
  - 400: Validation failure
  - 403: Forbidden field or not the owner
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	fields, err := requestutil.DecodeJSONFields(request, &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Update(request.Context(), claims, requestutil.ID(request, "id"), UpdateInput{
		Fields:      fields,
		Username:    input.Username,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Bio:         input.Bio,
		PhoneNumber: input.PhoneNumber,
		IsTwoFA:     input.IsTwoFA,
		IsNotiOn:    input.IsNotiOn,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
DELETE /api/v1/users/{id}.

Description: Deletes a deactivated, non-superuser account.

Response:
  - 200: Message
  - 400: Account still active
  - 403: Not a superuser, or target is a superuser
*/
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.accountService.Delete(request.Context(), claims, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, message)
}

// # Lifecycle Endpoints

// transitionFn matches the lifecycle methods of [Service].
type transitionFn func(context context.Context, actorID, targetID string) (string, error)

/*
POST /api/v1/users/{id}/{activate,deactivate,strike,unstrike}-user.

Description: Applies one lifecycle transition with the caller as actor.

Response:
  - 200: Message: e.g. "User a@b.co has been deactivated."
  - 400: Repeated or blocked transition
  - 403: Role hierarchy violation
*/
func (handler *Handler) transition(apply transitionFn) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		actorID, err := requestutil.RequiredUserID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		message, err := apply(request.Context(), actorID, requestutil.ID(request, "id"))
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.Message(writer, message)
	}
}
