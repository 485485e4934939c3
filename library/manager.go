package library

import (
	"context"
	"fmt"
	"strings"
)

// LibraryManager is a thin façade over the stores and engines, keeping the
// HTTP and CLI code simple.
type LibraryManager struct {
	db          *Database
	circulation *Circulation
	access      *AccessControl
	auth        *AuthGate
}

type managerOptions struct {
	clock      Clock
	bcryptCost int
}

// Option configures a LibraryManager.
type Option func(*managerOptions)

// WithClock overrides the clock used for due dates.
func WithClock(c Clock) Option {
	return func(o *managerOptions) { o.clock = c }
}

// WithBcryptCost sets the cost of newly created password hashes.
func WithBcryptCost(cost int) Option {
	return func(o *managerOptions) { o.bcryptCost = cost }
}

// NewLibraryManager opens (or creates) the database and wires the engines.
func NewLibraryManager(driver, dsn string, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(driver, dsn)
	if err != nil {
		return nil, err
	}
	return newManager(db, opts...), nil
}

func newManager(db *Database, opts ...Option) *LibraryManager {
	o := &managerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &LibraryManager{
		db:          db,
		circulation: NewCirculation(db, o.clock),
		access:      NewAccessControl(db),
		auth:        NewAuthGate(db, NewHasher(o.bcryptCost)),
	}
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Ping checks the database connection.
func (lm *LibraryManager) Ping(ctx context.Context) error { return lm.db.Ping(ctx) }

// ------------------ Catalog ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, title, author string, year int) (int64, error) {
	if err := validateBook(title, author, year); err != nil {
		return 0, err
	}
	return lm.db.AddBook(ctx, title, author, year)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, id int64, title, author string, year int) error {
	if err := validateBook(title, author, year); err != nil {
		return err
	}
	return lm.db.UpdateBook(ctx, id, title, author, year)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, id int64) error {
	return lm.db.DeleteBook(ctx, id)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LibraryManager) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.GetAllBooks(ctx)
}

func (lm *LibraryManager) SearchBooks(ctx context.Context, q string) ([]*Book, error) {
	return lm.db.SearchBooks(ctx, q)
}

// BooksBorrowedBy lists what a user currently holds.
func (lm *LibraryManager) BooksBorrowedBy(ctx context.Context, userID int64) ([]*Book, error) {
	return lm.db.GetBorrowedBy(ctx, userID)
}

func validateBook(title, author string, year int) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(author) == "" {
		return fmt.Errorf("%w: title and author are required", ErrInvalidBook)
	}
	if year <= 0 {
		return fmt.Errorf("%w: year must be positive", ErrInvalidBook)
	}
	return nil
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(ctx context.Context, bookID, borrowerID int64) (Loan, error) {
	return lm.circulation.Borrow(ctx, bookID, borrowerID)
}

func (lm *LibraryManager) Return(ctx context.Context, bookID int64) error {
	return lm.circulation.Return(ctx, bookID)
}

// Borrowers lists the users a book can be lent to.
func (lm *LibraryManager) Borrowers(ctx context.Context) ([]*User, error) {
	return lm.db.GetMembers(ctx)
}

// ------------------ Users & access ------------------

func (lm *LibraryManager) GetUser(ctx context.Context, id int64) (*User, error) {
	return lm.db.GetUser(ctx, id)
}

// SessionUser loads the identity for an authenticated session.
func (lm *LibraryManager) SessionUser(ctx context.Context, id int64) (SessionUser, error) {
	u, err := lm.db.GetUser(ctx, id)
	if err != nil {
		return SessionUser{}, err
	}
	return u.sessionUser(), nil
}

func (lm *LibraryManager) ListUsers(ctx context.Context, q string, page int) (*UserPage, error) {
	return lm.db.ListUsers(ctx, q, page)
}

func (lm *LibraryManager) ChangeRole(ctx context.Context, targetID int64, newRole string, actingID int64) (RoleChange, error) {
	return lm.access.ChangeRole(ctx, targetID, newRole, actingID)
}

// ------------------ Authentication ------------------

func (lm *LibraryManager) Login(ctx context.Context, email, password string) (SessionUser, error) {
	return lm.auth.Login(ctx, email, password)
}

func (lm *LibraryManager) Register(ctx context.Context, name, email, password string) (int64, error) {
	return lm.auth.Register(ctx, name, email, password)
}

func (lm *LibraryManager) CreateAdmin(ctx context.Context, name, email, password string) (int64, error) {
	return lm.auth.CreateAdmin(ctx, name, email, password)
}

func (lm *LibraryManager) MigrateLegacyPasswords(ctx context.Context) (int, error) {
	return lm.auth.MigrateLegacyPasswords(ctx)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for terminal lists.
func PrettyBook(b *Book, borrowerName string) string {
	return fmt.Sprintf("%-5d %-30s %-25s %-6d %-10s %-20s %s",
		b.ID, truncate(b.Title, 30), truncate(b.Author, 25), b.Year, b.Status, truncate(borrowerName, 20), b.DueDateString())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
