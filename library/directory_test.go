package library

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, db *Database, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		addUser(t, db, fmt.Sprintf("User %02d", i), fmt.Sprintf("user%02d@example.com", i), "x", RoleMember)
	}
}

func TestListUsersPagination(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	seedUsers(t, db, 19)

	page, err := db.ListUsers(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 19, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Users, UsersPerPage)
	assert.Equal(t, "User 00", page.Users[0].Name)

	last, err := db.ListUsers(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, last.Users, 3)
	assert.Equal(t, "User 18", last.Users[2].Name)
	assert.Equal(t, RoleMember, last.Users[2].Role)
}

func TestListUsersClampsPage(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	seedUsers(t, db, 10)

	page, err := db.ListUsers(ctx, "", 99)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Users, 2)

	page, err = db.ListUsers(ctx, "", -4)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestListUsersSearch(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	addUser(t, db, "Maria Silva", "maria@example.com", "x", RoleMember)
	addUser(t, db, "Joao", "joao@silva.dev", "x", RoleAdmin)
	addUser(t, db, "Pedro", "pedro@example.com", "x", RoleMember)

	page, err := db.ListUsers(ctx, " silva ", 1)
	require.NoError(t, err)
	assert.Equal(t, "silva", page.Query)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "Joao", page.Users[0].Name)
	assert.Equal(t, "Maria Silva", page.Users[1].Name)

	empty, err := db.ListUsers(ctx, "nomatch", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Equal(t, 1, empty.Page)
	assert.Empty(t, empty.Users)
}
