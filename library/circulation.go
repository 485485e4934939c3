package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// LoanPeriodDays is the fixed lending period.
const LoanPeriodDays = 7

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// DueDate computes the due date of a loan starting at now.
func DueDate(now time.Time) time.Time {
	return now.AddDate(0, 0, LoanPeriodDays)
}

// Circulation is the only component allowed to change a book's loan status.
type Circulation struct {
	db  *Database
	now Clock
}

// NewCirculation creates the circulation engine. A nil clock uses time.Now.
func NewCirculation(db *Database, now Clock) *Circulation {
	if now == nil {
		now = time.Now
	}
	return &Circulation{db: db, now: now}
}

// Borrow lends an available book to a member for LoanPeriodDays.
//
// The book is read, checked, and updated in one transaction, so two
// concurrent borrows of the same book cannot both succeed. On failure the
// book is left untouched.
func (c *Circulation) Borrow(ctx context.Context, bookID, borrowerID int64) (Loan, error) {
	due := DueDate(c.now())

	err := c.db.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := c.db.lockBook(ctx, tx, bookID)
		if err != nil {
			return wrapNotFound(err, "book %d", bookID)
		}
		if !book.Available() {
			return ErrAlreadyBorrowed
		}

		borrower, err := getUser(ctx, tx, tx.Rebind(selectUserColumns+` WHERE id=?`), borrowerID)
		if err != nil {
			return wrapNotFound(err, "borrower %d", borrowerID)
		}
		if borrower.Role != RoleMember {
			return ErrBorrowerNotMember
		}

		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE books SET available=?, borrower_id=?, due_date=? WHERE id=? AND available=?`),
			false, borrowerID, due.Format(DueDateLayout), bookID, true)
		if err != nil {
			return storageErr("borrow book", err)
		}
		if err := expectOneRow(res, "borrow book"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrAlreadyBorrowed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Loan{}, err
	}
	return Loan{BookID: bookID, BorrowerID: borrowerID, DueDate: due}, nil
}

// Return takes a borrowed book back, clearing the borrower and due date.
func (c *Circulation) Return(ctx context.Context, bookID int64) error {
	return c.db.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := c.db.lockBook(ctx, tx, bookID)
		if err != nil {
			return wrapNotFound(err, "book %d", bookID)
		}
		if book.Available() {
			return ErrNotBorrowed
		}

		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE books SET available=?, borrower_id=NULL, due_date=NULL WHERE id=? AND available=?`),
			true, bookID, false)
		if err != nil {
			return storageErr("return book", err)
		}
		if err := expectOneRow(res, "return book"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotBorrowed
			}
			return err
		}
		return nil
	})
}

func wrapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}
