package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"library-web/internal/csrf"
	"library-web/internal/logger"
	"library-web/internal/middleware"
	"library-web/library"
)

//go:embed templates/*.html
var templateFS embed.FS

// Library is the part of library.LibraryManager the HTTP layer uses.
type Library interface {
	Ping(ctx context.Context) error

	AddBook(ctx context.Context, title, author string, year int) (int64, error)
	UpdateBook(ctx context.Context, id int64, title, author string, year int) error
	DeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (*library.Book, error)
	SearchBooks(ctx context.Context, q string) ([]*library.Book, error)
	BooksBorrowedBy(ctx context.Context, userID int64) ([]*library.Book, error)

	Borrow(ctx context.Context, bookID, borrowerID int64) (library.Loan, error)
	Return(ctx context.Context, bookID int64) error
	Borrowers(ctx context.Context) ([]*library.User, error)

	GetUser(ctx context.Context, id int64) (*library.User, error)
	SessionUser(ctx context.Context, id int64) (library.SessionUser, error)
	ListUsers(ctx context.Context, q string, page int) (*library.UserPage, error)
	ChangeRole(ctx context.Context, targetID int64, newRole string, actingID int64) (library.RoleChange, error)

	Login(ctx context.Context, email, password string) (library.SessionUser, error)
	Register(ctx context.Context, name, email, password string) (int64, error)
}

type Handler struct {
	lib      Library
	sessions *middleware.Sessions
	now      func() time.Time
}

func NewHandler(lib Library, sessions *middleware.Sessions) *Handler {
	return &Handler{lib: lib, sessions: sessions, now: time.Now}
}

// RegisterRoutes installs the templates, the session/CSRF/user middleware
// chain, and every route on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(h.funcs()).ParseFS(templateFS, "templates/*.html")))

	r.GET("/health", h.health)

	g := r.Group("/",
		h.sessions.Handler(),
		csrf.Middleware(middleware.CurrentSession),
		middleware.LoadUser(h.lib),
	)

	g.GET("/login", h.loginPage)
	g.POST("/login", h.login)
	g.GET("/register", h.registerPage)
	g.POST("/register", h.register)

	authed := g.Group("/", middleware.RequireAuth())
	authed.POST("/logout", h.logout)
	authed.GET("/", h.index)
	authed.GET("/my-books", h.myBooks)

	restricted := "Access restricted to administrators!"
	admin := authed.Group("/", middleware.RequireRole(library.RoleAdmin, restricted))
	admin.GET("/users", h.users)
	admin.POST("/users/:id/role", h.changeRole)
	admin.GET("/books/new", h.newBookPage)
	admin.POST("/books/new", h.createBook)
	admin.GET("/books/:id/edit", h.editBookPage)
	admin.POST("/books/:id/edit", h.updateBook)
	admin.POST("/books/:id/delete", h.deleteBook)

	lend := authed.Group("/", middleware.RequireRole(library.RoleAdmin, "Only administrators can lend books!"))
	lend.GET("/books/:id/borrow", h.borrowPage)
	lend.POST("/books/:id/borrow", h.borrow)

	returns := authed.Group("/", middleware.RequireRole(library.RoleAdmin, "Only administrators can record returns!"))
	returns.POST("/books/:id/return", h.returnBook)
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"overdue": func(b *library.Book) bool { return b.IsOverdue(h.now()) },
		"add":     func(a, b int) int { return a + b },
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
	}
}

func (h *Handler) health(c *gin.Context) {
	if err := h.lib.Ping(c.Request.Context()); err != nil {
		logger.Error("health check failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// render executes a page template with the values every page needs.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	sess := middleware.CurrentSession(c)
	if sess != nil {
		data["CSRFToken"] = sess.CSRFToken
		data["Flashes"] = sess.PopFlashes()
	}
	if u, ok := middleware.CurrentUser(c); ok {
		data["User"] = u
	}
	c.HTML(status, name, data)
}

func (h *Handler) flash(c *gin.Context, category, message string) {
	if sess := middleware.CurrentSession(c); sess != nil {
		sess.AddFlash(category, message)
	}
}

func (h *Handler) redirect(c *gin.Context, location, category, message string) {
	h.flash(c, category, message)
	c.Redirect(http.StatusFound, location)
}

// fail answers an unexpected error with 500.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	fields := map[string]any{"error": err.Error(), "path": c.Request.URL.Path}
	if errors.Is(err, library.ErrStorage) {
		logger.Error("storage failure", fields)
	} else {
		logger.Error("unexpected failure", fields)
	}
	c.String(http.StatusInternalServerError, "Internal server error.")
	c.Abort()
}

// pathID parses the :id route parameter, answering 404 when it is not a
// positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.String(http.StatusNotFound, "Not found.")
		c.Abort()
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) library.SessionUser {
	u, _ := middleware.CurrentUser(c)
	return u
}
