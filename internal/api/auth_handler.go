package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// CookieConfig controls the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
	cookie      CookieConfig
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, cookie CookieConfig, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, log: log}
}

// --- Request Structs ---

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new member or trainer
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body service.RegisterInput true "Registration details"
// @Success 201 {object} service.Account
// @Failure 400 {object} envelope "Invalid input"
// @Failure 409 {object} envelope "Email already exists"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, account)
}

// Login godoc
// @Summary Log in and receive a token (also set as an httpOnly cookie)
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 401 {object} envelope "Authentication failed"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, result.Token, cookieMaxAge(result), "/", "", h.cookie.Secure, true)
	respondOK(c, http.StatusOK, result)
}

func cookieMaxAge(result *service.LoginResult) int {
	seconds := int(time.Until(result.ExpiresAt).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Logout godoc
// @Summary Clear the session cookie
// @Tags Auth
// @Success 200 {object} envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	respondOK(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me godoc
// @Summary Current user with its role profile
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} service.Account
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	account, err := h.authService.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, account)
}
