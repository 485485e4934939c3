package library

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// NormalizeEmail lower-cases and trims an email address. Every lookup and
// insert goes through it so the unique constraint is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddUser inserts a user with an already-encoded credential.
func (d *Database) AddUser(ctx context.Context, name, email, credential string, role Role) (int64, error) {
	var id int64
	err := d.db.QueryRowxContext(ctx,
		d.db.Rebind(`INSERT INTO users(name,email,password,role) VALUES(?,?,?,?) RETURNING id`),
		strings.TrimSpace(name), NormalizeEmail(email), credential, role,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, storageErr("insert user", err)
	}
	return id, nil
}

// GetUser fetches a single user.
func (d *Database) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, d.db, d.db.Rebind(selectUserColumns+` WHERE id=?`), id)
}

// GetUserByEmail fetches a user by normalized email.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := d.userByEmailStmt.GetContext(ctx, &u, NormalizeEmail(email)); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get user by email", err)
	}
	return &u, nil
}

func getUser(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*User, error) {
	var u User
	if err := sqlx.GetContext(ctx, q, &u, query, args...); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get user", err)
	}
	return &u, nil
}

// UpdatePassword replaces a user's stored credential.
func (d *Database) UpdatePassword(ctx context.Context, id int64, credential string) error {
	res, err := d.db.ExecContext(ctx, d.db.Rebind(`UPDATE users SET password=? WHERE id=?`), credential, id)
	if err != nil {
		return storageErr("update password", err)
	}
	return expectOneRow(res, "update password")
}

// GetMembers returns all member-role users ordered by name: the eligible
// borrowers.
func (d *Database) GetMembers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := d.db.SelectContext(ctx, &users,
		d.db.Rebind(selectUserColumns+` WHERE role=? ORDER BY name`), RoleMember)
	if err != nil {
		return nil, storageErr("list members", err)
	}
	return users, nil
}

// credentialRow is the minimal projection used by the password migration.
type credentialRow struct {
	ID       int64  `db:"id"`
	Password string `db:"password"`
}

func (d *Database) getCredentials(ctx context.Context, q sqlx.QueryerContext) ([]credentialRow, error) {
	var rows []credentialRow
	if err := sqlx.SelectContext(ctx, q, &rows, `SELECT id,password FROM users ORDER BY id`); err != nil {
		return nil, storageErr("list credentials", err)
	}
	return rows, nil
}
