package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"ehub/internal/authflow"
	"ehub/internal/session"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
)

const resetSentMessage = "If the email is registered, a reset code is on its way."

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (h *AuthHandler) renderForgot(c *gin.Context, code int, data gin.H) {
	question, answer := h.captchaService.GenerateMathProblem()
	s := session.Default(c)
	s.SetResetCaptchaAnswer(answer)
	saveSession(c, s)
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = "Forgot password"
	data["Captcha"] = question
	Render(c, code, "auth/forgot_password.html", data)
}

func (h *AuthHandler) ShowForgotPassword(c *gin.Context) {
	h.renderForgot(c, http.StatusOK, nil)
}

// ForgotPassword mails a reset code and moves on to the reset form
// whether or not the address has an account.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))

	s := session.Default(c)
	expected, ok := s.TakeResetCaptchaAnswer()
	if !ok || strings.TrimSpace(c.PostForm("captcha")) == "" || utils.StringToInt(c.PostForm("captcha")) != expected {
		h.renderForgot(c, http.StatusBadRequest, gin.H{"Error": "Incorrect answer to the captcha", "Email": email})
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), email); err != nil {
		data := gin.H{"Error": messageFor(c, err, "Failed to send reset code"), "Email": email}
		var fe authflow.FieldErrors
		if errors.As(err, &fe) {
			data["Errors"] = fe
		}
		h.renderForgot(c, statusFor(err), data)
		return
	}

	redirectWithNotice(c, "/reset-password?email="+url.QueryEscape(email), "info", resetSentMessage)
}

func (h *AuthHandler) ShowResetPassword(c *gin.Context) {
	Render(c, http.StatusOK, "auth/reset_password.html", gin.H{"Title": "Reset password", "Email": c.Query("email")})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))

	err := h.accounts.ResetPassword(c.Request.Context(), email, strings.TrimSpace(c.PostForm("code")), c.PostForm("password"))
	if err != nil {
		data := gin.H{"Title": "Reset password", "Error": messageFor(c, err, "Failed to reset password"), "Email": email}
		var fe authflow.FieldErrors
		if errors.As(err, &fe) {
			data["Errors"] = fe
		}
		Render(c, statusFor(err), "auth/reset_password.html", data)
		return
	}

	s := session.Default(c)
	s.RememberEmail(email)
	redirectWithNotice(c, "/login", "success", "Password updated. Please log in.")
}

func (h *AuthHandler) APIForgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}
	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		apiError(c, err, "Failed to send reset code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": resetSentMessage})
}

func (h *AuthHandler) APIResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req.Email, strings.TrimSpace(req.Code), req.Password); err != nil {
		apiError(c, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated. Please log in."})
}
