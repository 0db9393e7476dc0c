package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ehub/internal/authflow"
	"ehub/internal/services"
	"ehub/internal/session"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type AuthHandler struct {
	accounts       Accounts
	captchaService *services.CaptchaService
	oauth          *oauth2.Config
}

// NewAuthHandler builds the auth handler. oauth may be nil when Google
// sign-in is not configured.
func NewAuthHandler(accounts Accounts, captcha *services.CaptchaService, oauth *oauth2.Config) *AuthHandler {
	return &AuthHandler{accounts: accounts, captchaService: captcha, oauth: oauth}
}

// flow restores the login flow from the session.
func (h *AuthHandler) flow(s *session.Session) *authflow.Flow {
	if id, ok := s.TempUserID(); ok {
		return authflow.Restore(h.accounts, authflow.State{Stage: authflow.StageOTP, TempUserID: id})
	}
	return authflow.New(h.accounts)
}

func (h *AuthHandler) renderLogin(c *gin.Context, code int, f *authflow.Flow, email string) {
	data := gin.H{
		"Title":         "Login",
		"Stage":         string(f.Stage()),
		"Email":         email,
		"Errors":        f.FieldErrors(),
		"GoogleEnabled": h.oauth != nil,
	}
	if n := f.Notice(); n != nil {
		data["FlowNotice"] = n
	}
	Render(c, code, "auth/login.html", data)
}

// finish stores the signed-in user and sends them to their landing page.
func (h *AuthHandler) finish(c *gin.Context, s *session.Session, f *authflow.Flow) {
	s.Login(f.User().ID)
	if err := s.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
	}
	c.Redirect(http.StatusFound, f.RedirectPath())
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	s := session.Default(c)
	if c.Query("restart") != "" {
		s.ClearTempUserID()
		_ = s.Save()
	}
	h.renderLogin(c, http.StatusOK, h.flow(s), s.RememberedEmail())
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	s := session.Default(c)
	f := authflow.New(h.accounts)
	if err := f.SubmitCredentials(c.Request.Context(), email, password); err != nil {
		h.renderLogin(c, statusFor(err), f, email)
		return
	}

	if f.Stage() == authflow.StageOTP {
		s.SetTempUserID(f.State().TempUserID)
		s.RememberEmail(email)
		redirectWithNotice(c, "/login", string(f.Notice().Severity), f.Notice().Message)
		return
	}
	h.finish(c, s, f)
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	s := session.Default(c)
	f := h.flow(s)
	if f.Stage() != authflow.StageOTP {
		// the challenge is gone, so SubmitOTP reports the missing user
		f = authflow.Restore(h.accounts, authflow.State{Stage: authflow.StageOTP})
	}

	if err := f.SubmitOTP(c.Request.Context(), c.PostForm("otp")); err != nil {
		h.renderLogin(c, statusFor(err), f, "")
		return
	}
	h.finish(c, s, f)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	s := session.Default(c)
	s.Logout()
	if err := s.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) renderRegister(c *gin.Context, code int, data gin.H) {
	question, answer := h.captchaService.GenerateMathProblem()
	s := session.Default(c)
	s.SetCaptchaAnswer(answer)
	if err := s.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
	}
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = "Sign up"
	data["Captcha"] = question
	Render(c, code, "auth/register.html", data)
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	form := gin.H{"Username": username, "Email": email}

	s := session.Default(c)
	expected, ok := s.CaptchaAnswer()
	if !ok || strings.TrimSpace(c.PostForm("captcha")) == "" || utils.StringToInt(c.PostForm("captcha")) != expected {
		h.renderRegister(c, http.StatusBadRequest, gin.H{"Error": "Incorrect answer to the captcha", "Form": form})
		return
	}

	if username == "" {
		username = strings.Split(email, "@")[0]
	}
	_, err := h.accounts.Register(c.Request.Context(), username, email, password)
	if err != nil {
		data := gin.H{"Error": messageFor(c, err, "Failed to create account"), "Form": form}
		var fe authflow.FieldErrors
		if errors.As(err, &fe) {
			data["Errors"] = fe
		}
		h.renderRegister(c, statusFor(err), data)
		return
	}

	s.RememberEmail(email)
	redirectWithNotice(c, "/login", "success", "Account created. Please log in.")
}
