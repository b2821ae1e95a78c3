package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the account service over HTTP.
type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg gin.IRouter, extra ...gin.HandlerFunc) {
	a := rg.Group("/auth", extra...)
	a.POST("/signup", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	a.POST("/password-reset", h.PasswordReset)
	a.POST("/password-reset/confirm", h.ConfirmPasswordReset)
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

var statusByCode = map[auth.Code]int{
	auth.CodeInvalidEmail:      http.StatusBadRequest,
	auth.CodeWeakPassword:      http.StatusBadRequest,
	auth.CodeInvalidResetCode:  http.StatusBadRequest,
	auth.CodeEmailInUse:        http.StatusConflict,
	auth.CodeInvalidCredential: http.StatusUnauthorized,
	auth.CodeSessionExpired:    http.StatusUnauthorized,
	auth.CodeUserNotFound:      http.StatusNotFound,
	auth.CodeNetwork:           http.StatusBadGateway,
}

func writeAuthError(c *gin.Context, err error) {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		ae = auth.AsError(err)
	}
	status, ok := statusByCode[ae.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, auth.ErrorResponse{Error: ae.Message, Code: ae.Code})
}

func tokenResponse(s *auth.Session, withRefresh bool) auth.TokenResponse {
	id := s.Identity
	tr := auth.TokenResponse{
		AccessToken: s.AccessToken,
		ExpiresIn:   int(time.Until(s.ExpiresAt).Round(time.Second).Seconds()),
		User:        &id,
	}
	if withRefresh {
		tr.RefreshToken = s.RefreshToken
	}
	return tr
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse(s, true))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(s, true))
}

// Refresh exchanges a refresh token for a new access and refresh token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(s, true))
}

// Logout invalidates the refresh token and blacklists the bearer access token when present
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	access, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	if err := h.svc.SignOut(c.Request.Context(), &auth.Session{AccessToken: access, RefreshToken: req.RefreshToken}); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reset code sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
