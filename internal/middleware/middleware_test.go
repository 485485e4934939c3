package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-web/internal/session"
	"library-web/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[int64]library.SessionUser

func (f fakeUsers) SessionUser(_ context.Context, id int64) (library.SessionUser, error) {
	u, ok := f[id]
	if !ok {
		return library.SessionUser{}, library.ErrNotFound
	}
	return u, nil
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func newTestRouter(store session.Store, users UserLoader) (*gin.Engine, *Sessions) {
	sessions := NewSessions(store, session.CookieOptions{}, time.Hour)
	r := gin.New()
	r.Use(sessions.Handler(), LoadUser(users))

	r.GET("/whoami", func(c *gin.Context) {
		u, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "ok": ok, "session": CurrentSession(c).ID})
	})
	r.POST("/login", func(c *gin.Context) {
		if err := sessions.Rotate(c); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		CurrentSession(c).UserID = 1
		c.Status(http.StatusNoContent)
	})
	r.POST("/logout", func(c *gin.Context) {
		_ = sessions.Reset(c)
		c.Status(http.StatusNoContent)
	})
	admin := r.Group("/admin", RequireAuth(), RequireRole(library.RoleAdmin, "Admins only."))
	admin.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, sessions
}

func do(r http.Handler, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSessionsPersistAndRotate(t *testing.T) {
	store := session.NewMemoryStore()
	users := fakeUsers{1: {ID: 1, Name: "Ana", Role: library.RoleMember}}
	r, _ := newTestRouter(store, users)

	rec := do(r, http.MethodGet, "/whoami", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	anon := sessionCookie(t, rec)

	stored, err := store.Get(context.Background(), anon.Value)
	require.NoError(t, err)
	require.NotNil(t, stored)
	stored.CSRFToken = "tok"
	require.NoError(t, store.Update(context.Background(), *stored))

	rec = do(r, http.MethodPost, "/login", anon)
	require.Equal(t, http.StatusNoContent, rec.Code)
	authed := sessionCookie(t, rec)
	assert.NotEqual(t, anon.Value, authed.Value)

	old, err := store.Get(context.Background(), anon.Value)
	require.NoError(t, err)
	assert.Nil(t, old)

	rotated, err := store.Get(context.Background(), authed.Value)
	require.NoError(t, err)
	require.NotNil(t, rotated)
	assert.Equal(t, int64(1), rotated.UserID)
	assert.Equal(t, "tok", rotated.CSRFToken)

	rec = do(r, http.MethodGet, "/whoami", authed)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = do(r, http.MethodPost, "/logout", authed)
	fresh := sessionCookie(t, rec)
	assert.NotEqual(t, authed.Value, fresh.Value)
	gone, err := store.Get(context.Background(), authed.Value)
	require.NoError(t, err)
	assert.Nil(t, gone)

	reset, err := store.Get(context.Background(), fresh.Value)
	require.NoError(t, err)
	require.NotNil(t, reset)
	assert.False(t, reset.Authenticated())
	assert.Empty(t, reset.CSRFToken)
}

func TestResetFailureClearsCookie(t *testing.T) {
	store := session.NewMemoryStore()
	users := fakeUsers{1: {ID: 1, Name: "Ana", Role: library.RoleMember}}
	r, sessions := newTestRouter(store, users)

	anon := sessionCookie(t, do(r, http.MethodGet, "/whoami", nil))
	rec := do(r, http.MethodPost, "/login", anon)
	require.Equal(t, http.StatusNoContent, rec.Code)
	authed := sessionCookie(t, rec)

	sessions.newSession = func(time.Time, time.Duration) (*session.Session, error) {
		return nil, errors.New("entropy exhausted")
	}
	rec = do(r, http.MethodPost, "/logout", authed)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)

	// The deleted session is not written back by the save step.
	gone, err := store.Get(context.Background(), authed.Value)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUnknownUserIsDowngraded(t *testing.T) {
	store := session.NewMemoryStore()
	r, _ := newTestRouter(store, fakeUsers{})

	s, err := session.New(time.Now(), time.Hour)
	require.NoError(t, err)
	s.UserID = 42
	require.NoError(t, store.Create(context.Background(), *s))

	rec := do(r, http.MethodGet, "/whoami", &http.Cookie{Name: session.CookieName, Value: s.ID})
	assert.Contains(t, rec.Body.String(), `"ok":false`)

	saved, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, saved.Authenticated())
}

func TestRequireAuthAndRole(t *testing.T) {
	store := session.NewMemoryStore()
	users := fakeUsers{
		1: {ID: 1, Role: library.RoleMember},
		2: {ID: 2, Role: library.RoleAdmin},
	}
	r, _ := newTestRouter(store, users)

	rec := do(r, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	for id, want := range map[int64]int{1: http.StatusFound, 2: http.StatusOK} {
		s, err := session.New(time.Now(), time.Hour)
		require.NoError(t, err)
		s.UserID = id
		require.NoError(t, store.Create(context.Background(), *s))

		rec := do(r, http.MethodGet, "/admin", &http.Cookie{Name: session.CookieName, Value: s.ID})
		assert.Equal(t, want, rec.Code, "user %d", id)
		if want == http.StatusFound {
			assert.Equal(t, "/", rec.Header().Get("Location"))
			saved, err := store.Get(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, []session.Flash{{Category: session.FlashDanger, Message: "Admins only."}}, saved.Flashes)
		}
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := do(r, http.MethodGet, "/", nil)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "given")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "given", rec.Header().Get(RequestIDHeader))
}
