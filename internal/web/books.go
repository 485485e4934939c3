package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"library-web/internal/logger"
	"library-web/internal/session"
	"library-web/library"
)

// index shows the catalog to admins and the member's own loans otherwise.
func (h *Handler) index(c *gin.Context) {
	u := currentUser(c)
	if !library.Authorize(u, library.RoleAdmin) {
		h.myBooks(c)
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	books, err := h.lib.SearchBooks(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	names, err := h.borrowerNames(c.Request.Context(), books)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{
		"Books":     books,
		"Query":     q,
		"Borrowers": names,
	})
}

func (h *Handler) myBooks(c *gin.Context) {
	books, err := h.lib.BooksBorrowedBy(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "my_books.html", gin.H{"Books": books})
}

func (h *Handler) borrowerNames(ctx context.Context, books []*library.Book) (map[int64]string, error) {
	names := make(map[int64]string)
	for _, b := range books {
		if b.BorrowerID == nil {
			continue
		}
		if _, ok := names[*b.BorrowerID]; ok {
			continue
		}
		u, err := h.lib.GetUser(ctx, *b.BorrowerID)
		if errors.Is(err, library.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		names[u.ID] = u.Name
	}
	return names, nil
}

type bookForm struct {
	Title  string
	Author string
	Year   string
}

func readBookForm(c *gin.Context) (bookForm, int, bool) {
	f := bookForm{
		Title:  strings.TrimSpace(c.PostForm("title")),
		Author: strings.TrimSpace(c.PostForm("author")),
		Year:   strings.TrimSpace(c.PostForm("year")),
	}
	year, err := strconv.Atoi(f.Year)
	return f, year, err == nil
}

func (h *Handler) newBookPage(c *gin.Context) {
	h.render(c, http.StatusOK, "book_form.html", gin.H{"Action": "/books/new", "Form": bookForm{}})
}

func (h *Handler) createBook(c *gin.Context) {
	f, year, ok := readBookForm(c)
	page := gin.H{"Action": "/books/new", "Form": f}
	if !ok {
		h.flash(c, session.FlashWarning, "Year must be a number.")
		h.render(c, http.StatusOK, "book_form.html", page)
		return
	}

	id, err := h.lib.AddBook(c.Request.Context(), f.Title, f.Author, year)
	if errors.Is(err, library.ErrInvalidBook) {
		h.flash(c, session.FlashWarning, "Title, author and a positive year are required.")
		h.render(c, http.StatusOK, "book_form.html", page)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	logger.Info("book added", map[string]any{"book_id": id, "by": currentUser(c).ID})
	h.redirect(c, "/", session.FlashSuccess, "Book added successfully!")
}

func (h *Handler) editBookPage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.lib.GetBook(c.Request.Context(), id)
	if errors.Is(err, library.ErrNotFound) {
		h.redirect(c, "/", session.FlashWarning, "Book not found!")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "book_form.html", gin.H{
		"Action": fmt.Sprintf("/books/%d/edit", id),
		"Book":   b,
		"Form":   bookForm{Title: b.Title, Author: b.Author, Year: strconv.Itoa(b.Year)},
	})
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	f, year, ok := readBookForm(c)
	page := gin.H{"Action": fmt.Sprintf("/books/%d/edit", id), "Form": f}
	if !ok {
		h.flash(c, session.FlashWarning, "Year must be a number.")
		h.render(c, http.StatusOK, "book_form.html", page)
		return
	}

	err := h.lib.UpdateBook(c.Request.Context(), id, f.Title, f.Author, year)
	switch {
	case errors.Is(err, library.ErrNotFound):
		h.redirect(c, "/", session.FlashWarning, "Book not found!")
	case errors.Is(err, library.ErrInvalidBook):
		h.flash(c, session.FlashWarning, "Title, author and a positive year are required.")
		h.render(c, http.StatusOK, "book_form.html", page)
	case err != nil:
		h.fail(c, err)
	default:
		logger.Info("book updated", map[string]any{"book_id": id, "by": currentUser(c).ID})
		h.redirect(c, "/", session.FlashSuccess, "Book updated successfully!")
	}
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := h.lib.DeleteBook(c.Request.Context(), id)
	switch {
	case errors.Is(err, library.ErrNotFound):
		h.redirect(c, "/", session.FlashWarning, "Book not found!")
	case err != nil:
		h.fail(c, err)
	default:
		logger.Info("book removed", map[string]any{"book_id": id, "by": currentUser(c).ID})
		h.redirect(c, "/", session.FlashSuccess, "Book removed successfully!")
	}
}
