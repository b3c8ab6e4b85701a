package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/harrylevesque/commandapi/internal/storage/migrate"
	"github.com/harrylevesque/commandapi/internal/storage/sqlstore/migrations"
)

// Options selects and configures the backing database.
type Options struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	// DSN is a PostgreSQL connection string, or a file path for SQLite.
	DSN string
	// Username and Password override the credentials in a PostgreSQL DSN.
	Username string
	Password string
}

// Open connects to the database described by opts and verifies the
// connection with a ping.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dialect := migrate.Dialect(strings.ToLower(strings.TrimSpace(opts.Driver)))
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case migrate.Postgres:
		db, err = openPostgres(opts)
	case migrate.SQLite:
		db, err = openSQLite(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	return New(db, dialect), nil
}

func openPostgres(opts Options) (*sql.DB, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, errors.New("postgres connection string is required")
	}
	cfg, err := pgx.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	if opts.Username != "" {
		cfg.User = opts.Username
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	return stdlib.OpenDB(*cfg), nil
}

func openSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	pragmas := url.Values{}
	pragmas.Add("_pragma", "busy_timeout(5000)")
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", "synchronous(NORMAL)")
	db, err := sql.Open("sqlite", filepath.Clean(path)+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	sub, err := fs.Sub(migrations.FS, string(s.dialect))
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", s.dialect, err)
	}
	applied, err := migrate.Apply(ctx, s.db, s.dialect, sub, ".")
	if err != nil {
		return applied, fmt.Errorf("run migrations: %w", err)
	}
	return applied, nil
}
