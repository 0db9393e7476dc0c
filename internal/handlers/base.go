package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ehub/internal/authflow"
	"ehub/internal/middleware"
	"ehub/internal/services"
	"ehub/internal/session"
	"ehub/internal/thread"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path

	s := session.Default(c)
	if notices := s.Notices(); len(notices) > 0 {
		obj["Notices"] = notices
		if err := s.Save(); err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
		}
	}

	c.HTML(code, name, obj)
}

// RenderError renders the error page.
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Title": http.StatusText(code)})
}

// redirectWithNotice queues a notice for the next page and redirects.
func redirectWithNotice(c *gin.Context, path, severity, message string) {
	s := session.Default(c)
	if message != "" {
		s.AddNotice(severity, message)
	}
	if err := s.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
	}
	c.Redirect(http.StatusFound, path)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, authflow.ErrInvalidInput),
		errors.Is(err, authflow.ErrNoPendingOTP),
		errors.Is(err, thread.ErrEmptyReply),
		errors.Is(err, services.ErrInvalidReset),
		errors.Is(err, services.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, thread.ErrNotAuthenticated),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPLocked),
		errors.Is(err, services.ErrGoogleToken):
		return http.StatusUnauthorized
	case errors.Is(err, thread.ErrNotPermitted),
		errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, thread.ErrReplyNotFound),
		errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, thread.ErrRequestPending),
		errors.Is(err, thread.ErrWrongMode),
		errors.Is(err, authflow.ErrWrongStage),
		errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the text shown for err. Unexpected errors are logged and
// replaced by fallback.
func messageFor(c *gin.Context, err error, fallback string) string {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), fallback, "path", c.Request.URL.Path, "error", err)
		return fallback
	}
	if msg := thread.Message(err, ""); msg != "" {
		return msg
	}
	return capitalize(err.Error())
}

// apiError writes the JSON error body used by every /api endpoint.
func apiError(c *gin.Context, err error, fallback string) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": true, "message": messageFor(c, err, fallback)})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
