package http

import (
	"log"
	"net/http"
	"strings"

	"saverr/internal/infrastructure/identity"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/validation"
)

const minPasswordLength = 8

// AuthHandler exposes the registration and session endpoints backed by the
// identity provider. These routes are public; everything else on the API
// sits behind the auth middleware.
type AuthHandler struct {
	identity identity.ClientInterface
}

func NewAuthHandler(client identity.ClientInterface) *AuthHandler {
	return &AuthHandler{identity: client}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerResponse struct {
	Message              string      `json:"message"`
	UserConfirmed        bool        `json:"user_confirmed"`
	ConfirmationRequired bool        `json:"confirmation_required"`
	User                 userPayload `json:"user"`
}

type userPayload struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// HandleRegister creates a new user with the identity provider.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := strings.ToLower(validation.SanitizeString(req.Email, 255))
	name := validation.SanitizeString(req.Name, 100)

	if !validation.ValidEmail(email) {
		writeError(w, apperr.Validation("Invalid email format"))
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, apperr.Validation("Password must be at least 8 characters"))
		return
	}
	if name == "" {
		writeError(w, apperr.Validation("Name cannot be empty"))
		return
	}

	result, err := h.identity.SignUp(r.Context(), email, req.Password, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:              "User registered successfully",
		UserConfirmed:        result.UserConfirmed,
		ConfirmationRequired: !result.UserConfirmed,
		User:                 userPayload{Email: email, Name: name},
	})
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandleConfirm completes email verification with the code sent at signup.
func (h *AuthHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := strings.ToLower(validation.SanitizeString(req.Email, 255))
	code := validation.SanitizeString(req.Code, 10)

	if !validation.ValidEmail(email) {
		writeError(w, apperr.Validation("Invalid email format"))
		return
	}
	if code == "" {
		writeError(w, apperr.Validation("Invalid confirmation code"))
		return
	}

	if err := h.identity.ConfirmSignUp(r.Context(), email, code); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Email confirmed successfully",
		"confirmed": true,
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleResendCode sends a fresh confirmation code to an unconfirmed user.
func (h *AuthHandler) HandleResendCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	email, err := parseEmailBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.identity.ResendConfirmationCode(r.Context(), email); err != nil {
		// Do not reveal whether the account exists.
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeJSON(w, http.StatusOK, map[string]string{
				"message": "If an account exists with this email, a new code has been sent.",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Confirmation code sent successfully",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int         `json:"expires_in"`
	User         userPayload `json:"user"`
}

// HandleLogin exchanges credentials for a token pair.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := strings.ToLower(validation.SanitizeString(req.Email, 255))
	if !validation.ValidEmail(email) {
		writeError(w, apperr.Validation("Invalid email format"))
		return
	}
	if req.Password == "" {
		writeError(w, apperr.Validation("Password is required"))
		return
	}

	tokens, user, err := h.identity.Login(r.Context(), email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		User:         userPayload{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// HandleRefresh trades a refresh token for a new access token. The new
// token pair keeps the original refresh token when the provider does not
// rotate it.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, apperr.Validation("refresh_token is required"))
		return
	}

	tokens, err := h.identity.Refresh(r.Context(), req.RefreshToken, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = req.RefreshToken
	}

	resp := sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	}
	if user, err := h.identity.GetUser(r.Context(), tokens.AccessToken); err != nil {
		log.Printf("WARN: failed to load user after token refresh: %v", err)
	} else {
		resp.User = userPayload{ID: user.ID, Email: user.Email, Name: user.Name}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe returns the profile for the bearer token on the request.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, apperr.Unauthorized("Missing authentication token"))
		return
	}

	user, err := h.identity.GetUser(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]userPayload{
		"user": {ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

// HandleForgotPassword starts a password reset. The response never reveals
// whether the account exists.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	email, err := parseEmailBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.identity.ForgotPassword(r.Context(), email); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeJSON(w, http.StatusOK, map[string]string{
				"message": "If an account exists with this email, a reset code has been sent.",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists with this email, a reset code has been sent.",
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword completes a password reset with the emailed code.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := strings.ToLower(validation.SanitizeString(req.Email, 255))
	code := validation.SanitizeString(req.Code, 10)

	if !validation.ValidEmail(email) {
		writeError(w, apperr.Validation("Invalid email format"))
		return
	}
	if code == "" {
		writeError(w, apperr.Validation("Invalid reset code"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, apperr.Validation("Password must be at least 8 characters"))
		return
	}

	if err := h.identity.ResetPassword(r.Context(), email, code, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

func parseEmailBody(r *http.Request) (string, error) {
	var req emailRequest
	if err := decodeBody(r, &req); err != nil {
		return "", err
	}
	email := strings.ToLower(validation.SanitizeString(req.Email, 255))
	if !validation.ValidEmail(email) {
		return "", apperr.Validation("Invalid email format")
	}
	return email, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
