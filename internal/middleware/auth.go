package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"ehub/internal/models"
	"ehub/internal/session"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// UserLoader resolves the session's user id.
type UserLoader interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// LoadUser retrieves user from session and sets to context
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.Default(c)
		if id, ok := s.UserID(); ok {
			user, err := users.UserByID(c.Request.Context(), id)
			if err == nil {
				c.Set(CheckUserKey, user)
			} else {
				slog.WarnContext(c.Request.Context(), "dropping session for unknown user", "userId", id, "error", err)
				s.Logout()
				_ = s.Save()
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user set by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			deny(c, http.StatusUnauthorized, "Please log in to continue")
			return
		}
		c.Next()
	}
}

// AdminRequired lets only admins through.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			deny(c, http.StatusUnauthorized, "Please log in to continue")
			return
		}
		if !u.IsAdmin() {
			deny(c, http.StatusForbidden, "Admins only")
			return
		}
		c.Next()
	}
}

// deny answers JSON callers with an error body and sends browsers to the
// login page.
func deny(c *gin.Context, code int, message string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(code, gin.H{"error": true, "message": message})
		return
	}
	if code == http.StatusUnauthorized {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.AbortWithStatus(code)
}

func WantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}
