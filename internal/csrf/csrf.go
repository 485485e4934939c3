// Package csrf guards state-changing requests with a per-session token.
//
// The token is created lazily, stays fixed for the life of the session, and
// must come back on every POST, PUT, PATCH and DELETE either as the
// csrf_token form field or as the X-CSRFToken header.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-web/internal/logger"
	"library-web/internal/session"
)

const (
	FormField  = "csrf_token"
	HeaderName = "X-CSRFToken"

	tokenBytes = 16
)

var ErrTokenMismatch = errors.New("csrf: token missing or invalid")

// NewToken returns 16 random bytes, hex-encoded.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Ensure returns the session's token, creating it on first use.
func Ensure(s *session.Session) (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}
	tok, err := NewToken()
	if err != nil {
		return "", err
	}
	s.CSRFToken = tok
	return tok, nil
}

// Check compares the submitted token with the session's in constant time.
func Check(s *session.Session, sent string) error {
	if s == nil || s.CSRFToken == "" || sent == "" {
		return ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(sent)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// Protected reports whether a method must carry a token.
func Protected(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware rejects protected requests without a matching token with 400
// and aborts the chain. current returns the request's session.
func Middleware(current func(*gin.Context) *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := current(c)
		tok, err := Ensure(sess)
		if err != nil {
			logger.Error("csrf token generation failed", map[string]any{"error": err.Error()})
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Header(HeaderName, tok)

		if !Protected(c.Request.Method) {
			c.Next()
			return
		}

		sent := c.PostForm(FormField)
		if sent == "" {
			sent = c.GetHeader(HeaderName)
		}
		if err := Check(sess, sent); err != nil {
			logger.Warn("csrf check failed", map[string]any{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			})
			c.String(http.StatusBadRequest, "Invalid CSRF token.")
			c.Abort()
			return
		}
		c.Next()
	}
}
