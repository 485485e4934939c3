package library

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// AddBook inserts a new, available book.
func (d *Database) AddBook(ctx context.Context, title, author string, year int) (int64, error) {
	var id int64
	err := d.db.QueryRowxContext(ctx,
		d.db.Rebind(`INSERT INTO books(title,author,year,available) VALUES(?,?,?,?) RETURNING id`),
		strings.TrimSpace(title), strings.TrimSpace(author), year, true,
	).Scan(&id)
	if err != nil {
		return 0, storageErr("insert book", err)
	}
	return id, nil
}

// GetBook fetches a single book.
func (d *Database) GetBook(ctx context.Context, id int64) (*Book, error) {
	var row bookRow
	if err := d.bookByIDStmt.GetContext(ctx, &row, id); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get book", err)
	}
	return row.book()
}

// lockBook reads a book inside tx, locking the row where the driver needs it.
func (d *Database) lockBook(ctx context.Context, tx *sqlx.Tx, id int64) (*Book, error) {
	var row bookRow
	err := tx.GetContext(ctx, &row, tx.Rebind(selectBookColumns+` WHERE id=?`+d.forUpdate()), id)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get book", err)
	}
	return row.book()
}

// GetAllBooks returns the whole catalog ordered by id.
func (d *Database) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return d.selectBooks(ctx, selectBookColumns+` ORDER BY id`)
}

// SearchBooks returns books whose title contains q. An empty query lists the
// whole catalog.
func (d *Database) SearchBooks(ctx context.Context, q string) ([]*Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return d.GetAllBooks(ctx)
	}
	return d.selectBooks(ctx, selectBookColumns+` WHERE title LIKE ? ORDER BY id`, "%"+q+"%")
}

// GetBorrowedBy returns the books currently lent to userID.
func (d *Database) GetBorrowedBy(ctx context.Context, userID int64) ([]*Book, error) {
	return d.selectBooks(ctx, selectBookColumns+` WHERE borrower_id=? AND available=? ORDER BY id`, userID, false)
}

func (d *Database) selectBooks(ctx context.Context, query string, args ...any) ([]*Book, error) {
	var rows []bookRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), args...); err != nil {
		return nil, storageErr("list books", err)
	}
	books := make([]*Book, 0, len(rows))
	for _, r := range rows {
		b, err := r.book()
		if err != nil {
			return nil, storageErr("decode book", err)
		}
		books = append(books, b)
	}
	return books, nil
}

// UpdateBook replaces a book's descriptive fields. Loan status is untouched.
func (d *Database) UpdateBook(ctx context.Context, id int64, title, author string, year int) error {
	res, err := d.db.ExecContext(ctx,
		d.db.Rebind(`UPDATE books SET title=?, author=?, year=? WHERE id=?`),
		strings.TrimSpace(title), strings.TrimSpace(author), year, id)
	if err != nil {
		return storageErr("update book", err)
	}
	return expectOneRow(res, "update book")
}

// DeleteBook removes a book from the catalog.
func (d *Database) DeleteBook(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, d.db.Rebind(`DELETE FROM books WHERE id=?`), id)
	if err != nil {
		return storageErr("delete book", err)
	}
	return expectOneRow(res, "delete book")
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffecter, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
