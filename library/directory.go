package library

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

// UsersPerPage is the page size of the user directory.
const UsersPerPage = 8

// UserPage is one page of the admin user directory.
type UserPage struct {
	Users      []*User
	Query      string
	Page       int
	TotalPages int
	Total      int
}

func (d *Database) dialect() goqu.DialectWrapper {
	if d.driver == DriverPostgres {
		return goqu.Dialect("postgres")
	}
	return goqu.Dialect("sqlite3")
}

// ListUsers returns the requested page of users whose name or email contains
// q, ordered by name. Out-of-range pages are clamped.
func (d *Database) ListUsers(ctx context.Context, q string, page int) (*UserPage, error) {
	q = strings.TrimSpace(q)

	ds := d.dialect().From("users").Prepared(true)
	if q != "" {
		like := "%" + q + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(like),
			goqu.C("email").ILike(like),
		))
	}

	countSQL, args, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, storageErr("build user count", err)
	}
	var total int
	if err := d.db.GetContext(ctx, &total, countSQL, args...); err != nil {
		return nil, storageErr("count users", err)
	}

	totalPages := max((total+UsersPerPage-1)/UsersPerPage, 1)
	page = min(max(page, 1), totalPages)

	pageSQL, args, err := ds.
		Select("id", "name", "email", "role").
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		Limit(UsersPerPage).
		Offset(uint((page - 1) * UsersPerPage)).
		ToSQL()
	if err != nil {
		return nil, storageErr("build user page", err)
	}

	var users []*User
	if err := d.db.SelectContext(ctx, &users, pageSQL, args...); err != nil {
		return nil, storageErr("list users", err)
	}

	return &UserPage{
		Users:      users,
		Query:      q,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}
