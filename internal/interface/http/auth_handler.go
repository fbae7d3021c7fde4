package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/application"
	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
	"github.com/oksasatya/go-ecommerce-auth/pkg/validation"
)

const MsgRefreshMissing = "Refresh token no proporcionado"

type AuthHandler struct {
	Svc    *application.AuthService
	Config *config.Config
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, cfg *config.Config, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Config: cfg, Logger: logger}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,personname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,pwd"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,pwd"`
}

type authResponse struct {
	Message      string                  `json:"message"`
	User         application.SessionUser `json:"user"`
	AccessToken  string                  `json:"accessToken"`
	RefreshToken string                  `json:"refreshToken"`
}

type forgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
	ResetURL   string `json:"resetUrl,omitempty"`
}

func newAuthResponse(msg string, res *application.AuthResult) authResponse {
	return authResponse{Message: msg, User: res.User, AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}
}

// refreshTokenFrom reads the refresh token from the body. An empty or missing
// body is reported as a missing token rather than a validation failure.
func refreshTokenFrom(c *gin.Context) (string, error) {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", apperror.BadRequest(MsgRefreshMissing)
		}
	}
	tok := strings.TrimSpace(req.RefreshToken)
	if tok == "" {
		return "", apperror.BadRequest(MsgRefreshMissing)
	}
	return tok, nil
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, newAuthResponse(application.MsgRegistered, res))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), application.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, newAuthResponse(application.MsgLoggedIn, res))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	tok, err := refreshTokenFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.Svc.Refresh(c.Request.Context(), tok)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"accessToken": res.AccessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	tok, err := refreshTokenFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.Svc.Logout(c.Request.Context(), tok); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, application.MsgLoggedOut)
}

// ForgotPassword echoes the reset secret only in development, where no mail is sent.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.Svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	body := forgotPasswordResponse{Message: res.Message}
	if h.Config != nil && h.Config.IsDevelopment() && res.ResetToken != "" {
		body.ResetToken = res.ResetToken
		body.ResetURL = res.ResetURL
	}
	response.JSON(c, http.StatusOK, body)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, application.MsgPasswordUpdated)
}

func (h *AuthHandler) Me(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		response.Error(c, apperror.Unauthorized(middleware.MsgNotAuthed))
		return
	}
	p, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": p})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		response.Error(c, apperror.Unauthorized(middleware.MsgNotAuthed))
		return
	}
	var req changePasswordRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, application.MsgPasswordUpdated)
}
