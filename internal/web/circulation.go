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

func (h *Handler) borrowPage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	b, err := h.lib.GetBook(ctx, id)
	if errors.Is(err, library.ErrNotFound) {
		h.redirect(c, "/", session.FlashWarning, "Book not found!")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if !b.Available() {
		h.redirect(c, "/", session.FlashWarning, "Book is already borrowed!")
		return
	}

	members, err := h.lib.Borrowers(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "borrow.html", gin.H{
		"Book":    b,
		"Members": members,
		"DueDate": library.DueDate(h.now()).Format(library.DueDateLayout),
	})
}

func (h *Handler) borrow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	borrowerID, err := strconv.ParseInt(c.PostForm("borrower_id"), 10, 64)
	if err != nil {
		h.redirect(c, "/", session.FlashWarning, "Choose a member to lend the book to.")
		return
	}

	loan, err := h.lib.Borrow(c.Request.Context(), id, borrowerID)
	switch {
	case errors.Is(err, library.ErrAlreadyBorrowed):
		h.redirect(c, "/", session.FlashWarning, "Book is already borrowed!")
	case errors.Is(err, library.ErrBorrowerNotMember):
		h.redirect(c, "/", session.FlashWarning, "Books can only be lent to members.")
	case errors.Is(err, library.ErrNotFound):
		h.redirect(c, "/", session.FlashWarning, "Book or member not found!")
	case err != nil:
		h.fail(c, err)
	default:
		logger.Info("book lent", map[string]any{
			"book_id":     loan.BookID,
			"borrower_id": loan.BorrowerID,
			"due_date":    loan.DueDate.Format(library.DueDateLayout),
		})
		h.redirect(c, "/", session.FlashSuccess,
			"Book lent successfully! Due on "+loan.DueDate.Format(library.DueDateLayout)+".")
	}
}

func (h *Handler) returnBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := h.lib.Return(c.Request.Context(), id)
	switch {
	case errors.Is(err, library.ErrNotBorrowed):
		h.redirect(c, "/", session.FlashWarning, "Book is already available!")
	case errors.Is(err, library.ErrNotFound):
		h.redirect(c, "/", session.FlashWarning, "Book not found!")
	case err != nil:
		h.fail(c, err)
	default:
		logger.Info("book returned", map[string]any{"book_id": id})
		h.redirect(c, "/", session.FlashSuccess, "Book returned successfully!")
	}
}
