package library

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Authorize reports whether user may perform an operation that requires the
// given role. Admins hold every member capability.
func Authorize(user SessionUser, required Role) bool {
	switch required {
	case RoleMember:
		switch user.Role {
		case RoleMember, RoleAdmin:
			return true
		}
	case RoleAdmin:
		switch user.Role {
		case RoleAdmin:
			return true
		case RoleMember:
			return false
		}
	}
	return false
}

// RoleChange is the outcome of a successful ChangeRole call.
type RoleChange int

const (
	// RoleChanged means the new role was stored.
	RoleChanged RoleChange = iota + 1
	// RoleUnchanged means the target already held the requested role.
	RoleUnchanged
)

// AccessControl guards role changes.
type AccessControl struct {
	db *Database
}

// NewAccessControl creates the role-change guard.
func NewAccessControl(db *Database) *AccessControl {
	return &AccessControl{db: db}
}

// ChangeRole sets targetID's role to newRole on behalf of actingID.
//
// Rules, in order: the role must be recognized, nobody changes their own role,
// the target must exist, an identical role is a no-op, and the last admin can
// never be demoted. The admin rows are locked in id order before the target is
// read, so concurrent demotions queue on the same locks and the later one sees
// the earlier one's result.
func (a *AccessControl) ChangeRole(ctx context.Context, targetID int64, newRole string, actingID int64) (RoleChange, error) {
	role, err := ParseRole(newRole)
	if err != nil {
		return 0, err
	}
	if targetID == actingID {
		return 0, ErrSelfModification
	}

	var outcome RoleChange
	err = a.db.withTx(ctx, func(tx *sqlx.Tx) error {
		admins, err := a.lockAdmins(ctx, tx)
		if err != nil {
			return err
		}

		target, err := getUser(ctx, tx, tx.Rebind(selectUserColumns+` WHERE id=?`+a.db.forUpdate()), targetID)
		if err != nil {
			return wrapNotFound(err, "user %d", targetID)
		}
		if target.Role == role {
			outcome = RoleUnchanged
			return nil
		}

		if target.Role == RoleAdmin && role == RoleMember && len(admins) <= 1 {
			return ErrLastAdmin
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET role=? WHERE id=?`), role, targetID)
		if err != nil {
			return storageErr("update role", err)
		}
		if err := expectOneRow(res, "update role"); err != nil {
			return err
		}
		outcome = RoleChanged
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

// lockAdmins returns the current admin ids. On PostgreSQL the rows are locked
// in ascending id order; a row demoted by a transaction we waited on is
// re-checked against the role filter and dropped from the result.
func (a *AccessControl) lockAdmins(ctx context.Context, tx *sqlx.Tx) ([]int64, error) {
	var ids []int64
	err := tx.SelectContext(ctx, &ids, tx.Rebind(`SELECT id FROM users WHERE role=? ORDER BY id`+a.db.forUpdate()), RoleAdmin)
	if err != nil {
		return nil, storageErr("lock admins", err)
	}
	return ids, nil
}
