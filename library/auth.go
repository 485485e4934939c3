package library

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
)

// AuthGate verifies login credentials and keeps stored passwords current.
type AuthGate struct {
	db     *Database
	hasher *Hasher

	dummyOnce sync.Once
	dummy     string
}

// NewAuthGate creates the credential verifier.
func NewAuthGate(db *Database, hasher *Hasher) *AuthGate {
	return &AuthGate{db: db, hasher: hasher}
}

// Login authenticates email/password. Unknown emails and wrong passwords both
// yield ErrInvalidCredentials. A legacy plaintext credential that matches is
// rehashed and persisted before Login returns.
func (a *AuthGate) Login(ctx context.Context, email, password string) (SessionUser, error) {
	u, err := a.db.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Spend comparable time on unknown emails.
		a.hasher.Verify(a.dummyHash(), password)
		return SessionUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return SessionUser{}, err
	}

	if !a.hasher.Verify(u.Password, password) {
		return SessionUser{}, ErrInvalidCredentials
	}

	if a.hasher.NeedsRehash(u.Password) {
		hashed, err := a.hasher.Hash(password)
		if err != nil {
			return SessionUser{}, err
		}
		if err := a.db.UpdatePassword(ctx, u.ID, hashed); err != nil {
			return SessionUser{}, err
		}
	}

	return u.sessionUser(), nil
}

// Register creates a member account.
func (a *AuthGate) Register(ctx context.Context, name, email, password string) (int64, error) {
	return a.createUser(ctx, name, email, password, RoleMember)
}

// CreateAdmin creates an admin account. It is reserved for bootstrap tooling;
// the HTTP surface only ever registers members.
func (a *AuthGate) CreateAdmin(ctx context.Context, name, email, password string) (int64, error) {
	return a.createUser(ctx, name, email, password, RoleAdmin)
}

func (a *AuthGate) createUser(ctx context.Context, name, email, password string, role Role) (int64, error) {
	hashed, err := a.hasher.Hash(password)
	if err != nil {
		return 0, err
	}
	return a.db.AddUser(ctx, name, email, hashed, role)
}

// MigrateLegacyPasswords hashes every plaintext credential still stored and
// returns how many were upgraded. Running it again is a no-op.
func (a *AuthGate) MigrateLegacyPasswords(ctx context.Context) (int, error) {
	creds, err := a.db.getCredentials(ctx, a.db.db)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, c := range creds {
		if DetectAlgorithm(c.Password) != AlgorithmLegacy {
			continue
		}
		hashed, err := a.hasher.Hash(c.Password)
		if err != nil {
			return migrated, err
		}
		// Only replace the value we hashed; a concurrent login may have
		// upgraded it already.
		res, err := a.db.db.ExecContext(ctx,
			a.db.db.Rebind(`UPDATE users SET password=? WHERE id=? AND password=?`),
			hashed, c.ID, c.Password)
		if err != nil {
			return migrated, storageErr("migrate password", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			migrated++
		}
	}
	return migrated, nil
}

func (a *AuthGate) dummyHash() string {
	a.dummyOnce.Do(func() {
		b := make([]byte, 16)
		_, _ = rand.Read(b)
		a.dummy, _ = a.hasher.Hash(hex.EncodeToString(b))
	})
	return a.dummy
}

// ValidRegistration reports whether registration input has the minimum
// required fields.
func ValidRegistration(name, email, password string) bool {
	return strings.TrimSpace(name) != "" && strings.Contains(NormalizeEmail(email), "@") && password != ""
}
