package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/middleware"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// UserHandler handles account, session and preference endpoints.
type UserHandler struct {
	userService   *service.UserService
	authService   *service.AuthService
	accessTTL     time.Duration
	secureCookies bool
}

// NewUserHandler creates a new UserHandler. accessTTL sets the lifetime of
// the AccessToken cookie.
func NewUserHandler(userService *service.UserService, authService *service.AuthService, accessTTL time.Duration, secureCookies bool) *UserHandler {
	return &UserHandler{
		userService:   userService,
		authService:   authService,
		accessTTL:     accessTTL,
		secureCookies: secureCookies,
	}
}

// Register handles POST requests to create an account.
//
// Endpoint: POST /api/users
// Request Body: RegisterRequest (name, email, password)
// Response: 201 Created with model.User
// Error: 400 Bad Request if validation fails
// Error: 409 Conflict if the email is taken
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RegisterRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validation.ValidateRegister(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRegisterUser)
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRegisterUser)
		return
	}

	response.RespondJSON(w, http.StatusCreated, user)
}

// Login handles POST requests to start a session. The access token is
// returned in the body and set as an HttpOnly cookie.
//
// Endpoint: POST /api/users/login
// Request Body: LoginRequest (email, password)
// Response: 200 OK with model.TokenPair
// Error: 401 Unauthorized for bad credentials
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.LoginRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validation.ValidateLogin(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAuthenticate)
		return
	}

	tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAuthenticate)
		return
	}

	h.setAccessCookie(w, tokens.AccessToken, int(h.accessTTL.Seconds()))
	response.RespondJSON(w, http.StatusOK, tokens)
}

// Refresh handles POST requests to rotate a refresh token.
//
// Endpoint: POST /api/users/refresh
// Request Body: RefreshRequest (refreshToken)
// Response: 200 OK with model.TokenPair
// Error: 401 Unauthorized if the token is invalid, expired or already used
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RefreshRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	if req.RefreshToken == "" {
		response.RespondError(w, http.StatusBadRequest, "validation failed", map[string]string{"refreshToken": "refreshToken is required"})
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAuthenticate)
		return
	}

	h.setAccessCookie(w, tokens.AccessToken, int(h.accessTTL.Seconds()))
	response.RespondJSON(w, http.StatusOK, tokens)
}

// Logout handles POST requests to end the session.
//
// Endpoint: POST /api/users/logout
// Response: 204 No Content
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), currentUser(r).ID); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAuthenticate)
		return
	}

	h.setAccessCookie(w, "", -1)
	response.RespondJSON(w, http.StatusNoContent, nil)
}

// ForgotPassword handles POST requests for a password reset email. The
// response is the same whether or not the address is registered.
//
// Endpoint: POST /api/users/forgot-password
// Request Body: ForgotPasswordRequest (email)
// Response: 200 OK
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ForgotPasswordRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validation.ValidateForgotPassword(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToSendEmail)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToSendEmail)
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "If the address is registered, a reset link has been sent",
	})
}

// ResetPassword handles POST requests that set a new password with a reset token.
//
// Endpoint: POST /api/users/reset-password
// Request Body: ResetPasswordRequest (token, password)
// Response: 200 OK
// Error: 401 Unauthorized if the token is invalid, expired or used
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ResetPasswordRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}

	if err := validation.ValidateResetPassword(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAuthenticate)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAuthenticate)
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

// Me handles GET requests for the authenticated user's profile.
//
// Endpoint: GET /api/users/me
// Response: 200 OK with model.User
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveUsers)
		return
	}

	response.RespondJSON(w, http.StatusOK, user)
}

// UpdatePreferences handles PUT requests to change the default currency and
// the alert switch.
//
// Endpoint: PUT /api/users/me/preferences
// Request Body: UpdatePreferencesRequest (defaultCurrency, enableAlerts)
// Response: 200 OK with model.User
// Error: 400 Bad Request if validation fails
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpdatePreferencesRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	if req.DefaultCurrency != nil {
		normalized := validation.NormalizeCurrency(*req.DefaultCurrency)
		req.DefaultCurrency = &normalized
	}

	if err := validation.ValidateUpdatePreferences(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToUpdateUser)
		return
	}

	user, err := h.userService.UpdatePreferences(r.Context(), currentUser(r).ID, req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToUpdateUser)
		return
	}

	response.RespondJSON(w, http.StatusOK, user)
}

// ListUsers handles GET requests for every account. Admin only.
//
// Endpoint: GET /api/users
// Response: 200 OK with array of model.User
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveUsers)
		return
	}

	response.RespondJSON(w, http.StatusOK, users)
}

func (h *UserHandler) setAccessCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
