package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/auth"
	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/service"
)

// maxLoginBody caps the login request body.
const maxLoginBody = 4 << 10

// AuthHandler manages login, logout and the current-user endpoint.
type AuthHandler struct {
	auth          *service.AuthService
	tokenTTLSecs  int
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies should be true
// whenever the server sits behind HTTPS.
func NewAuthHandler(authService *service.AuthService, tokens *auth.TokenService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		tokenTTLSecs:  int(tokens.TTL().Seconds()),
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is the viewer's own profile. It is only ever sent to that
// viewer, so it is not redacted.
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Slug      string `json:"slug"`
}

type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Slug:      u.Slug,
	}
}

// HandleLogin checks credentials, sets the token cookie and returns the
// token for API clients.
//
// HTTP: POST /auth/login
// BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)

	var req loginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, h.tokenCookie(res.Token, h.tokenTTLSecs))
	writeJSON(w, http.StatusOK, loginResponse{
		User:  newUserResponse(res.User),
		Token: res.Token,
	})
}

// HandleLogout clears the token cookie. Tokens are stateless, so a copied
// bearer token stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.tokenCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated viewer's own profile.
//
// HTTP: GET /api/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.ViewerIDFromContext(r.Context())

	user, err := h.auth.GetUserByID(r.Context(), viewerID)
	if err != nil {
		h.logger.Warn("HandleMe: lookup failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
