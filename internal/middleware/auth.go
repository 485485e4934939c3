package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-web/internal/logger"
	"library-web/internal/session"
	"library-web/library"
)

// UserLoader resolves the user behind an authenticated session.
type UserLoader interface {
	SessionUser(ctx context.Context, id int64) (library.SessionUser, error)
}

// LoadUser attaches the session's user to the request. A session pointing at
// a user that no longer exists is downgraded to anonymous.
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || !sess.Authenticated() {
			c.Next()
			return
		}

		u, err := users.SessionUser(c.Request.Context(), sess.UserID)
		switch {
		case errors.Is(err, library.ErrNotFound):
			sess.UserID = 0
		case err != nil:
			logger.Error("load session user failed", map[string]any{
				"user_id": sess.UserID,
				"error":   err.Error(),
			})
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		default:
			c.Set(userKey, u)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (library.SessionUser, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return library.SessionUser{}, false
	}
	u, ok := v.(library.SessionUser)
	return u, ok
}

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			if sess := CurrentSession(c); sess != nil {
				sess.AddFlash(session.FlashInfo, "Please log in to access this page.")
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole lets the request through only when the user holds role;
// otherwise it flashes denied and redirects home. It must run after
// RequireAuth.
func RequireRole(role library.Role, denied string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := CurrentUser(c)
		if !library.Authorize(u, role) {
			if sess := CurrentSession(c); sess != nil {
				sess.AddFlash(session.FlashDanger, denied)
			}
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
