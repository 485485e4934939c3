package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-web/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnsureIsStable(t *testing.T) {
	s := &session.Session{}
	tok, err := Ensure(s)
	require.NoError(t, err)
	assert.Len(t, tok, 32)

	again, err := Ensure(s)
	require.NoError(t, err)
	assert.Equal(t, tok, again)
}

func TestCheck(t *testing.T) {
	s := &session.Session{CSRFToken: "abc123"}
	assert.NoError(t, Check(s, "abc123"))
	assert.ErrorIs(t, Check(s, "abc124"), ErrTokenMismatch)
	assert.ErrorIs(t, Check(s, ""), ErrTokenMismatch)
	assert.ErrorIs(t, Check(&session.Session{}, ""), ErrTokenMismatch)
	assert.ErrorIs(t, Check(nil, "abc123"), ErrTokenMismatch)
}

// newRouter serves a fixed session so requests can be built without cookies.
func newRouter(s *session.Session, reached *bool) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(func(*gin.Context) *session.Session { return s }))
	h := func(c *gin.Context) {
		*reached = true
		c.Status(http.StatusNoContent)
	}
	r.GET("/x", h)
	r.POST("/x", h)
	r.PUT("/x", h)
	r.PATCH("/x", h)
	r.DELETE("/x", h)
	return r
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			reached := false
			r := newRouter(&session.Session{CSRFToken: "good"}, &reached)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/x", nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, reached)
		})
	}
}

func TestMiddlewareAcceptsFormAndHeader(t *testing.T) {
	reached := false
	r := newRouter(&session.Session{CSRFToken: "good"}, &reached)

	form := url.Values{FormField: {"good"}}
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reached)

	reached = false
	req = httptest.NewRequest(http.MethodDelete, "/x", nil)
	req.Header.Set(HeaderName, "good")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reached)

	reached = false
	req = httptest.NewRequest(http.MethodPatch, "/x", nil)
	req.Header.Set(HeaderName, "bad")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, reached)
}

func TestMiddlewareIssuesTokenOnSafeRequests(t *testing.T) {
	reached := false
	s := &session.Session{}
	r := newRouter(s, &reached)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.True(t, reached)
	require.NotEmpty(t, s.CSRFToken)
	assert.Equal(t, s.CSRFToken, rec.Header().Get(HeaderName))
}
