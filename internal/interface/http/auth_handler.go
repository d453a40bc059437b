package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashteams/backend/internal/application"
	"github.com/flashteams/backend/internal/interface/middleware"
	"github.com/flashteams/backend/pkg/response"
)

type AuthHandler struct {
	Services ServiceFactory
}

func NewAuthHandler(services ServiceFactory) *AuthHandler {
	return &AuthHandler{Services: services}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	tok, err := h.Services.From(c).Auth.Login(c.Request.Context(), application.LoginCredentials{Email: req.Email, Password: req.Password})
	middleware.RecordAuthAttempt("password", err)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, tokenResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt}, "login successful", nil)
}

// Signup registers a user with a local password and signs them in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	svc := h.Services.From(c)
	u, err := svc.Users.Create(c.Request.Context(), req.toEntity())
	middleware.RecordAuthAttempt("signup", err)
	if err != nil {
		_ = c.Error(err)
		return
	}
	tok, err := svc.Auth.GenerateToken(u)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, tokenResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt}, "signup successful", nil)
}

func (h *AuthHandler) Google(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	res, err := h.Services.From(c).Auth.Authenticate(c.Request.Context(), application.ThirdPartyCredential{Token: req.Token})
	middleware.RecordAuthAttempt("google", err)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, googleResponse{
		Token:     res.Token.Value,
		ExpiresAt: res.Token.ExpiresAt,
		IsNewUser: res.IsNewUser,
		Email:     res.Email,
	}, "login successful", nil)
}
