package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-web/internal/logger"
	"library-web/internal/session"
	"library-web/library"
)

func (h *Handler) users(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	result, err := h.lib.ListUsers(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "users.html", gin.H{"Page": result})
}

func (h *Handler) changeRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	acting := currentUser(c)

	outcome, err := h.lib.ChangeRole(c.Request.Context(), id, c.PostForm("role"), acting.ID)
	switch {
	case errors.Is(err, library.ErrInvalidRole):
		h.redirect(c, "/users", session.FlashDanger, "Invalid user role.")
	case errors.Is(err, library.ErrSelfModification):
		h.redirect(c, "/users", session.FlashWarning, "You cannot change your own account role.")
	case errors.Is(err, library.ErrNotFound):
		h.redirect(c, "/users", session.FlashWarning, "User not found.")
	case errors.Is(err, library.ErrLastAdmin):
		h.redirect(c, "/users", session.FlashDanger, "The last administrator cannot be demoted.")
	case err != nil:
		h.fail(c, err)
	case outcome == library.RoleUnchanged:
		h.redirect(c, "/users", session.FlashInfo, "No change was needed.")
	default:
		logger.Info("user role changed", map[string]any{
			"user_id": id,
			"role":    c.PostForm("role"),
			"by":      acting.ID,
		})
		h.redirect(c, "/users", session.FlashSuccess, "User role updated.")
	}
}
