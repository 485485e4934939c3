package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := New(time.Now(), time.Hour)
	require.NoError(t, err)
	s.CSRFToken = "tok"
	require.NoError(t, store.Create(ctx, *s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.CSRFToken)
	assert.False(t, got.Authenticated())

	got.UserID = 5
	got.AddFlash(FlashSuccess, "hello")
	require.NoError(t, store.Update(ctx, *got))

	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, again.Authenticated())
	assert.Equal(t, []Flash{{Category: FlashSuccess, Message: "hello"}}, again.PopFlashes())
	assert.Empty(t, again.Flashes)

	require.NoError(t, store.Delete(ctx, s.ID))
	gone, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	s, err := New(now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, *s))

	now = now.Add(2 * time.Minute)
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	expired := *s
	assert.Error(t, store.Create(ctx, expired))
}

func TestMemoryStoreEvictsExpiredOnCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		s, err := New(now, time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, *s))
	}
	assert.Len(t, store.sessions, 1000)

	now = now.Add(2 * time.Minute)
	fresh, err := New(now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, *fresh))

	assert.Len(t, store.sessions, 1)
	got, err := store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemoryStoreRejectsMissingID(t *testing.T) {
	store := NewMemoryStore()
	err := store.Create(context.Background(), Session{ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

func TestGenerateIDIsUnique(t *testing.T) {
	a, err := GenerateID()
	require.NoError(t, err)
	b, err := GenerateID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	exp := time.Now().Add(time.Hour)
	SetCookie(rec, "abc", exp, CookieOptions{Secure: true})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	ClearCookie(rec, CookieOptions{})
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
