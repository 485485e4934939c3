package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-web/internal/logger"
	"library-web/internal/middleware"
	"library-web/internal/session"
	"library-web/library"
)

func (h *Handler) loginPage(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.render(c, http.StatusOK, "login.html", nil)
}

func (h *Handler) login(c *gin.Context) {
	email := c.PostForm("email")
	u, err := h.lib.Login(c.Request.Context(), email, c.PostForm("password"))
	if errors.Is(err, library.ErrInvalidCredentials) {
		logger.Warn("login failed", map[string]any{"email": library.NormalizeEmail(email)})
		h.flash(c, session.FlashDanger, "Invalid email or password.")
		h.render(c, http.StatusOK, "login.html", gin.H{"Email": email})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.sessions.Rotate(c); err != nil {
		h.fail(c, err)
		return
	}
	middleware.CurrentSession(c).UserID = u.ID

	logger.Info("user logged in", map[string]any{"user_id": u.ID, "role": u.Role.String()})
	h.redirect(c, "/", session.FlashSuccess, "Logged in successfully!")
}

func (h *Handler) logout(c *gin.Context) {
	u := currentUser(c)
	if err := h.sessions.Reset(c); err != nil {
		h.fail(c, err)
		return
	}
	logger.Info("user logged out", map[string]any{"user_id": u.ID})
	h.redirect(c, "/login", session.FlashInfo, "Logged out.")
}

func (h *Handler) registerPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", nil)
}

func (h *Handler) register(c *gin.Context) {
	name, email, password := c.PostForm("name"), c.PostForm("email"), c.PostForm("password")
	form := gin.H{"Name": name, "Email": email}

	if !library.ValidRegistration(name, email, password) {
		h.flash(c, session.FlashWarning, "Name, a valid email and a password are required.")
		h.render(c, http.StatusOK, "register.html", form)
		return
	}

	id, err := h.lib.Register(c.Request.Context(), name, email, password)
	switch {
	case errors.Is(err, library.ErrDuplicateEmail):
		h.flash(c, session.FlashWarning, "A user with this email already exists.")
		h.render(c, http.StatusOK, "register.html", form)
		return
	case errors.Is(err, library.ErrPasswordTooLong):
		h.flash(c, session.FlashWarning, "Password is too long.")
		h.render(c, http.StatusOK, "register.html", form)
		return
	case err != nil:
		h.fail(c, err)
		return
	}

	logger.Info("user registered", map[string]any{"user_id": id})
	h.redirect(c, "/login", session.FlashSuccess, "Account created successfully!")
}
