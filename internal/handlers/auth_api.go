package handlers

import (
	"log/slog"
	"net/http"

	"ehub/internal/authflow"
	"ehub/internal/session"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	UserID uint   `json:"userId"`
	OTP    string `json:"otp"`
}

type googleRequest struct {
	Credential string `json:"credential"`
}

func saveSession(c *gin.Context, s *session.Session) {
	if err := s.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
	}
}

// APILogin validates before calling the authenticator; invalid input is
// answered with 400 and never reaches it.
func (h *AuthHandler) APILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}

	f := authflow.New(h.accounts)
	if err := f.SubmitCredentials(c.Request.Context(), req.Email, req.Password); err != nil {
		apiError(c, err, "Login failed. Please check your credentials.")
		return
	}

	s := session.Default(c)
	if f.Stage() == authflow.StageOTP {
		s.SetTempUserID(f.State().TempUserID)
		saveSession(c, s)
		c.JSON(http.StatusOK, gin.H{
			"requireOTP": true,
			"userId":     f.State().TempUserID,
			"message":    f.Notice().Message,
		})
		return
	}

	s.Login(f.User().ID)
	saveSession(c, s)
	c.JSON(http.StatusOK, gin.H{
		"user":       f.User(),
		"requireOTP": false,
		"redirect":   f.RedirectPath(),
	})
}

func (h *AuthHandler) APIVerifyOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}

	s := session.Default(c)
	userID := req.UserID
	if userID == 0 {
		userID, _ = s.TempUserID()
	}

	f := authflow.Restore(h.accounts, authflow.State{Stage: authflow.StageOTP, TempUserID: userID})
	if err := f.SubmitOTP(c.Request.Context(), req.OTP); err != nil {
		msg := ""
		if n := f.Notice(); n != nil {
			msg = n.Message
		}
		if msg == "" {
			msg = messageFor(c, err, "OTP verification failed")
		}
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": true, "message": msg})
		return
	}

	s.Login(f.User().ID)
	saveSession(c, s)
	c.JSON(http.StatusOK, gin.H{"user": f.User(), "redirect": f.RedirectPath()})
}

func (h *AuthHandler) APIGoogleLogin(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Credential == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Missing Google credential"})
		return
	}

	f := authflow.New(h.accounts)
	if err := f.GoogleLogin(c.Request.Context(), req.Credential); err != nil {
		apiError(c, err, "Google login failed")
		return
	}

	s := session.Default(c)
	s.Login(f.User().ID)
	saveSession(c, s)
	c.JSON(http.StatusOK, gin.H{"user": f.User(), "redirect": f.RedirectPath()})
}

func (h *AuthHandler) APILogout(c *gin.Context) {
	s := session.Default(c)
	s.Logout()
	saveSession(c, s)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
