package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/service"
)

const (
	msgInvalidRequest = "Invalid request"
	msgInternalError  = "Internal server error"
	msgUnauthorized   = "Unauthorized"
	msgUserNotFound   = "User not found"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{logger: logger, auth: auth}
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// Register maneja POST /api-v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=8,max=72"`
		// Mantiene la direccion tal cual tras una sugerencia de tipeo.
		ConfirmEmail bool   `json:"confirmEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		message(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	_, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		ClientIP:     c.ClientIP(),
		ConfirmEmail: req.ConfirmEmail,
	})
	if err != nil {
		var typo *service.TypoError
		switch {
		case errors.As(err, &typo):
			c.JSON(http.StatusBadRequest, gin.H{
				"message":    "Did you mean " + typo.Suggestion + "?",
				"suggestion": typo.Suggestion,
			})
		case errors.Is(err, service.ErrEmailDenied):
			message(c, http.StatusForbidden, "Invalid email address")
		case errors.Is(err, service.ErrUserExists):
			message(c, http.StatusBadRequest, "User already exists")
		case errors.Is(err, service.ErrInvalidInput):
			message(c, http.StatusBadRequest, msgInvalidRequest)
		case errors.Is(err, service.ErrEmailSendFailure):
			message(c, http.StatusInternalServerError, "Failed to send verification email")
		default:
			h.logger.Error("register failed", zap.Error(err))
			message(c, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	message(c, http.StatusCreated, "Verification email sent. Please check and verify your account")
}

// Login maneja POST /api-v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		message(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			message(c, http.StatusNotFound, "Invalid email or password")
		case errors.Is(err, service.ErrVerificationPending):
			message(c, http.StatusBadRequest, "Email not verified. Please check your email for verification link.")
		case errors.Is(err, service.ErrVerificationResent):
			message(c, http.StatusCreated, "Verification email sent. Please check your email to verify your account")
		case errors.Is(err, service.ErrEmailSendFailure):
			message(c, http.StatusInternalServerError, "Failed to send verification email")
		default:
			h.logger.Error("login failed", zap.Error(err))
			message(c, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Log in successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

// VerifyEmail maneja POST /api-v1/auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify email request", zap.Error(err))
		message(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			message(c, http.StatusUnauthorized, msgUnauthorized)
		case errors.Is(err, service.ErrTokenExpired):
			message(c, http.StatusUnauthorized, "Verification token expired")
		case errors.Is(err, service.ErrUserNotFound):
			message(c, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, service.ErrAlreadyVerified):
			message(c, http.StatusBadRequest, "Email already verified")
		default:
			h.logger.Error("verify email failed", zap.Error(err))
			message(c, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	message(c, http.StatusOK, "Email verified successfully")
}

// ResetPasswordRequest maneja POST /api-v1/auth/reset-password-request.
func (h *AuthHandler) ResetPasswordRequest(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		message(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			message(c, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, service.ErrEmailNotVerified):
			message(c, http.StatusBadRequest, "Email not verified. Please verify your email before resetting password.")
		case errors.Is(err, service.ErrResetInProgress):
			message(c, http.StatusBadRequest, "A reset password request is already in progress. Please check your email.")
		case errors.Is(err, service.ErrInvalidInput):
			message(c, http.StatusBadRequest, msgInvalidRequest)
		case errors.Is(err, service.ErrEmailSendFailure):
			message(c, http.StatusInternalServerError, "Failed to send reset password email")
		default:
			h.logger.Error("reset password request failed", zap.Error(err))
			message(c, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	message(c, http.StatusOK, "Reset password email sent. Please check your email")
}

// ResetPassword maneja POST /api-v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token           string `json:"token" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password body", zap.Error(err))
		message(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			message(c, http.StatusUnauthorized, msgUnauthorized)
		case errors.Is(err, service.ErrTokenExpired):
			message(c, http.StatusUnauthorized, "Token expired")
		case errors.Is(err, service.ErrUserNotFound):
			message(c, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, service.ErrPasswordMismatch):
			message(c, http.StatusBadRequest, "Passwords do not match")
		case errors.Is(err, service.ErrInvalidInput):
			message(c, http.StatusBadRequest, msgInvalidRequest)
		default:
			h.logger.Error("reset password failed", zap.Error(err))
			message(c, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	message(c, http.StatusOK, "Password reset successfully")
}

// Me maneja GET /api-v1/auth/me. Requiere SessionAuthMiddleware.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		message(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	user, err := h.auth.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			message(c, http.StatusNotFound, msgUserNotFound)
			return
		}
		h.logger.Error("load profile failed", zap.Error(err))
		message(c, http.StatusInternalServerError, msgInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
