package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Database provides high-level helpers around a SQL connection pool. It backs
// both the credential store (users) and the catalog store (books).
type Database struct {
	db     *sqlx.DB
	driver string

	userByEmailStmt *sqlx.Stmt
	bookByIDStmt    *sqlx.Stmt
}

// NewDatabase opens the database, applies schema migrations, and prepares
// common statements. For sqlite3 the dsn is a file path.
func NewDatabase(driver, dsn string) (*Database, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverPostgres:
		db, err = openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	database := &Database{db: db, driver: driver}
	if err := database.applyMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// _txlock=immediate makes every transaction take the write lock at BEGIN,
	// so read-check-write sequences are serialized across connections.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", path)
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.userByEmailStmt != nil {
		d.userByEmailStmt.Close()
	}
	if d.bookByIDStmt != nil {
		d.bookByIDStmt.Close()
	}
	return d.db.Close()
}

// Ping checks that the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('admin','usuario'))
	);`,
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		year INTEGER NOT NULL,
		available BOOLEAN NOT NULL DEFAULT 1,
		borrower_id INTEGER REFERENCES users(id),
		due_date TEXT,
		CHECK ((available AND borrower_id IS NULL AND due_date IS NULL)
			OR (NOT available AND borrower_id IS NOT NULL AND due_date IS NOT NULL))
	);`,
	`CREATE INDEX IF NOT EXISTS books_borrower_idx ON books(borrower_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('admin','usuario'))
	);`,
	`CREATE TABLE IF NOT EXISTS books (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		year INTEGER NOT NULL,
		available BOOLEAN NOT NULL DEFAULT TRUE,
		borrower_id BIGINT REFERENCES users(id),
		due_date TEXT,
		CHECK ((available AND borrower_id IS NULL AND due_date IS NULL)
			OR (NOT available AND borrower_id IS NOT NULL AND due_date IS NOT NULL))
	);`,
	`CREATE INDEX IF NOT EXISTS books_borrower_idx ON books(borrower_id);`,
}

func (d *Database) applyMigrations() error {
	if d.driver == DriverSQLite {
		// WAL improves write concurrency.
		if _, err := d.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enable WAL: %w", err)
		}
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = d.db.QueryRow(d.db.Rebind(`SELECT value FROM meta WHERE key=?;`), "schema_version").Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := sqliteSchema
	if d.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(d.db.Rebind(`INSERT INTO meta(key,value) VALUES(?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value;`), "schema_version", strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

const (
	selectUserColumns = `SELECT id,name,email,password,role FROM users`
	selectBookColumns = `SELECT id,title,author,year,available,borrower_id,due_date FROM books`
)

func (d *Database) prepareStatements() error {
	var err error
	if d.userByEmailStmt, err = d.db.Preparex(d.db.Rebind(selectUserColumns + ` WHERE email=?`)); err != nil {
		return err
	}
	if d.bookByIDStmt, err = d.db.Preparex(d.db.Rebind(selectBookColumns + ` WHERE id=?`)); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// withTx runs fn inside a transaction. Errors returned by fn are passed through
// unchanged; failures to begin or commit are storage errors.
func (d *Database) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// forUpdate returns the row-locking suffix for reads that precede a write in
// the same transaction. SQLite transactions already hold the write lock.
func (d *Database) forUpdate() string {
	if d.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// either supported driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
