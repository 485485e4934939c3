package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-web/internal/logger"
	"library-web/internal/session"
)

const (
	sessionKey = "session"
	userKey    = "user"
)

// Sessions loads the request's session from the store before the handler
// runs and saves it afterwards. Handlers change it through CurrentSession,
// Rotate and Reset.
type Sessions struct {
	Store  session.Store
	Cookie session.CookieOptions
	TTL    time.Duration

	now        func() time.Time
	newSession func(now time.Time, ttl time.Duration) (*session.Session, error)
}

func NewSessions(store session.Store, cookie session.CookieOptions, ttl time.Duration) *Sessions {
	return &Sessions{Store: store, Cookie: cookie, TTL: ttl, now: time.Now, newSession: session.New}
}

type sessionState struct {
	sess    *session.Session
	created bool
	// discarded is set once the stored session is deleted and no
	// replacement could be started; nothing is saved for the request.
	discarded bool
}

// Handler attaches a session to every request, starting an anonymous one
// when the cookie is missing, unknown or expired.
func (m *Sessions) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session
		if cookie, err := c.Cookie(session.CookieName); err == nil && cookie != "" {
			s, err := m.Store.Get(c.Request.Context(), cookie)
			if err != nil {
				logger.Error("session load failed", map[string]any{"error": err.Error()})
			} else if s != nil && !s.Expired(m.now()) {
				sess = s
			}
		}

		state := &sessionState{sess: sess}
		if sess == nil {
			if err := m.start(c, state); err != nil {
				logger.Error("session start failed", map[string]any{"error": err.Error()})
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}
		c.Set(sessionKey, state)

		c.Next()

		m.save(c, state)
	}
}

func (m *Sessions) start(c *gin.Context, state *sessionState) error {
	s, err := m.newSession(m.now(), m.TTL)
	if err != nil {
		return err
	}
	state.sess = s
	state.created = true
	session.SetCookie(c.Writer, s.ID, s.ExpiresAt, m.Cookie)
	return nil
}

func (m *Sessions) save(c *gin.Context, state *sessionState) {
	if state.discarded {
		return
	}
	ctx := c.Request.Context()
	var err error
	if state.created {
		err = m.Store.Create(ctx, *state.sess)
	} else {
		err = m.Store.Update(ctx, *state.sess)
	}
	if err != nil {
		logger.Error("session save failed", map[string]any{"error": err.Error()})
	}
}

// CurrentSession returns the session attached by Handler.
func CurrentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		return v.(*sessionState).sess
	}
	return nil
}

// Rotate moves the session to a fresh id, keeping its contents. Called on
// login so an id known before authentication is useless afterwards.
func (m *Sessions) Rotate(c *gin.Context) error {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	state := v.(*sessionState)
	old := *state.sess

	if err := m.Store.Delete(c.Request.Context(), old.ID); err != nil {
		return err
	}
	if err := m.start(c, state); err != nil {
		m.discard(c, state)
		return err
	}
	state.sess.UserID = old.UserID
	state.sess.CSRFToken = old.CSRFToken
	state.sess.Flashes = old.Flashes
	return nil
}

// Reset discards the session, its user and its CSRF token, and starts a new
// anonymous one.
func (m *Sessions) Reset(c *gin.Context) error {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	state := v.(*sessionState)

	if err := m.Store.Delete(c.Request.Context(), state.sess.ID); err != nil {
		return err
	}
	if err := m.start(c, state); err != nil {
		m.discard(c, state)
		return err
	}
	return nil
}

// discard drops the deleted session from the request and the client.
func (m *Sessions) discard(c *gin.Context, state *sessionState) {
	state.discarded = true
	session.ClearCookie(c.Writer, m.Cookie)
}
