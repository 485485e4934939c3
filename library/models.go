package library

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Role is the closed set of account roles. The zero value is not a valid role.
type Role int

const (
	RoleMember Role = iota + 1
	RoleAdmin
)

// Wire and storage spellings of the roles.
const (
	roleAdminName  = "admin"
	roleMemberName = "usuario"
)

// ParseRole maps a wire/storage role string to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case roleAdminName:
		return RoleAdmin, nil
	case roleMemberName:
		return RoleMember, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return roleAdminName
	case RoleMember:
		return roleMemberName
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Value implements driver.Valuer so roles are stored by name.
func (r Role) Value() (driver.Value, error) {
	switch r {
	case RoleAdmin, RoleMember:
		return r.String(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("role: unsupported column type %T", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is a stored account. Password holds the credential string including its
// algorithm tag, or a legacy plaintext value.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Password string `db:"password" json:"-"`
	Role     Role   `db:"role" json:"role"`
}

// SessionUser is the authenticated identity carried by a request.
type SessionUser struct {
	ID    int64
	Name  string
	Email string
	Role  Role
}

func (u *User) sessionUser() SessionUser {
	return SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// IsAdmin reports whether the user holds the admin role.
func (u SessionUser) IsAdmin() bool { return u.Role == RoleAdmin }

// LoanStatus is a book's circulation state.
type LoanStatus int

const (
	StatusAvailable LoanStatus = iota
	StatusBorrowed
)

func (s LoanStatus) String() string {
	if s == StatusBorrowed {
		return "borrowed"
	}
	return "available"
}

// DueDateLayout is the persisted due date format (day/month/year).
const DueDateLayout = "02/01/2006"

// Book is a catalog record. BorrowerID and DueDate are set iff the book is
// borrowed.
type Book struct {
	ID         int64
	Title      string
	Author     string
	Year       int
	Status     LoanStatus
	BorrowerID *int64
	DueDate    *time.Time
}

// Available reports whether the book can be lent.
func (b *Book) Available() bool { return b.Status == StatusAvailable }

// IsOverdue reports whether a borrowed book's due day has passed by now.
func (b *Book) IsOverdue(now time.Time) bool {
	if b.Status != StatusBorrowed || b.DueDate == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, b.DueDate.Location())
	return today.After(*b.DueDate)
}

// DueDateString formats the due date for display, or "" when not borrowed.
func (b *Book) DueDateString() string {
	if b.DueDate == nil {
		return ""
	}
	return b.DueDate.Format(DueDateLayout)
}

// Loan is the (book, borrower, due date) pairing that exists while a book is
// borrowed. It is derived from Book and never stored on its own.
type Loan struct {
	BookID     int64
	BorrowerID int64
	DueDate    time.Time
}

// bookRow is the storage shape of a book.
type bookRow struct {
	ID         int64   `db:"id"`
	Title      string  `db:"title"`
	Author     string  `db:"author"`
	Year       int     `db:"year"`
	Available  bool    `db:"available"`
	BorrowerID *int64  `db:"borrower_id"`
	DueDate    *string `db:"due_date"`
}

func (r bookRow) book() (*Book, error) {
	b := &Book{
		ID:     r.ID,
		Title:  r.Title,
		Author: r.Author,
		Year:   r.Year,
		Status: StatusAvailable,
	}
	if r.Available {
		return b, nil
	}
	b.Status = StatusBorrowed
	b.BorrowerID = r.BorrowerID
	if r.DueDate != nil {
		due, err := time.ParseInLocation(DueDateLayout, *r.DueDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("book %d: parse due date %q: %w", r.ID, *r.DueDate, err)
		}
		b.DueDate = &due
	}
	return b, nil
}
