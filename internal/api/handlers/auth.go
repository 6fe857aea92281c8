package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/filepod/internal/api/middleware"
	"github.com/rohits-web03/filepod/internal/api/services"
	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/repositories"
	"github.com/rohits-web03/filepod/internal/utils"
)

const (
	minPasswordLength = 8
	oauthStateCookie  = "oauth_state"
)

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterUser godoc
// @Summary Create an account
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload{data=models.User}
// @Failure 400 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/v1/auth/sign-up [post]
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input, false) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if len(input.Password) < minPasswordLength {
		utils.JSONError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	_, err := h.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		utils.JSONError(w, http.StatusConflict, "User already exists with this email")
		return
	case !errors.Is(err, repositories.ErrNotFound):
		notFoundOr500(w, r, err, "User not found")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	hash := string(hashed)
	user := &models.User{
		Name:              strings.TrimSpace(input.Name),
		Email:             email,
		Password:          &hash,
		StorageQuotaBytes: h.cfg.DefaultQuotaBytes,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		logging.WithContext(ctx).Error("create user", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Database insert failed")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

// LoginUser godoc
// @Summary Log in with email and password
// @Description Returns a JWT and also sets it as the token cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload{data=authResponse}
// @Failure 401 {object} utils.Payload
// @Router /api/v1/auth/login [post]
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input, false) {
		return
	}
	if input.Email == "" || input.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := h.store.FindUserByEmail(r.Context(), strings.TrimSpace(input.Email))
	if errors.Is(err, repositories.ErrNotFound) {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		notFoundOr500(w, r, err, "User not found")
		return
	}
	if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)) != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, ok := h.startSession(w, r, user)
	if !ok {
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
		Data:    authResponse{Token: token, User: user},
	})
}

// startSession issues a JWT for user and sets it as the session cookie.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) (string, bool) {
	token, expiration, err := middleware.IssueToken(h.cfg.JWTSecret, user.ID, user.DisplayName(), h.cfg.JWTTTL)
	if err != nil {
		logging.WithContext(r.Context()).Error("sign token", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create token")
		return "", false
	}

	sameSite := http.SameSiteLaxMode
	if h.isProd() {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(time.Until(expiration).Seconds()),
		Secure:   h.isProd(),
		HttpOnly: true,
		SameSite: sameSite,
	})
	return token, true
}

// Logout godoc
// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.isProd(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logged out successfully",
	})
}

// HandleGoogleLogin godoc
// @Summary Start Google sign-in
// @Tags Auth
// @Param redirect query string false "login or register"
// @Success 307
// @Router /api/v1/auth/google/login [get]
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		utils.JSONError(w, http.StatusNotImplemented, "Google sign-in is not configured")
		return
	}

	flow := r.URL.Query().Get("redirect")
	if flow != "register" {
		flow = "login"
	}

	state, err := GenerateState(map[string]string{"flow": flow})
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to generate OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/v1/auth/google",
		MaxAge:   600,
		Secure:   h.isProd(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback godoc
// @Summary Finish Google sign-in
// @Tags Auth
// @Success 307
// @Router /api/v1/auth/google/callback [get]
func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		utils.JSONError(w, http.StatusNotImplemented, "Google sign-in is not configured")
		return
	}
	ctx := r.Context()
	logger := logging.WithContext(ctx)

	state := r.FormValue("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || !VerifyState(cookie.Value, state) {
		utils.JSONError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	stateData, err := DecodeState(state)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	flow := stateData["flow"]

	googleUser, err := services.FetchGoogleUser(ctx, h.google, r.FormValue("code"))
	if err != nil {
		logger.Error("google sign-in", zap.Error(err))
		utils.JSONError(w, http.StatusBadGateway, "Google sign-in failed")
		return
	}

	user, err := h.store.FindUserByEmail(ctx, googleUser.Email)
	switch {
	case err == nil && flow == "register":
		http.Redirect(w, r, h.cfg.FrontendURL+"/login?error=user_already_exists", http.StatusTemporaryRedirect)
		return
	case errors.Is(err, repositories.ErrNotFound) && flow == "login":
		http.Redirect(w, r, h.cfg.FrontendURL+"/register?error=user_not_found", http.StatusTemporaryRedirect)
		return
	case errors.Is(err, repositories.ErrNotFound):
		user = &models.User{
			Name:              googleUser.Name,
			Email:             strings.ToLower(googleUser.Email),
			StorageQuotaBytes: h.cfg.DefaultQuotaBytes,
		}
		if err := h.store.CreateUser(ctx, user); err != nil {
			logger.Error("create google user", zap.Error(err))
			utils.JSONError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}
	case err != nil:
		notFoundOr500(w, r, err, "User not found")
		return
	}

	if _, ok := h.startSession(w, r, user); !ok {
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/v1/auth/google", MaxAge: -1})

	status := "success_login"
	if flow == "register" {
		status = "success_register"
	}
	http.Redirect(w, r, h.cfg.FrontendURL+"/my-storage?status="+status, http.StatusTemporaryRedirect)
}
