// Package sqlstore persists commands through database/sql, on PostgreSQL
// via pgx or SQLite via modernc.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/harrylevesque/commandapi/internal/models"
	"github.com/harrylevesque/commandapi/internal/storage"
	"github.com/harrylevesque/commandapi/internal/storage/migrate"
)

const tracerName = "github.com/harrylevesque/commandapi/internal/storage/sqlstore"

const commandColumns = "id, how_to, platform, command_line"

// Store implements storage.CommandStore on a SQL database.
type Store struct {
	db      *sql.DB
	dialect migrate.Dialect
	tracer  trace.Tracer
}

var _ storage.CommandStore = (*Store)(nil)

// New wraps an open handle. The caller keeps ownership of the schema.
func New(db *sql.DB, dialect migrate.Dialect) *Store {
	return &Store{db: db, dialect: dialect, tracer: otel.Tracer(tracerName)}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storage.Internal("ping", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) (cmds []models.Command, err error) {
	ctx, span := s.start(ctx, "list")
	defer func() { end(span, err) }()

	rows, err := s.db.QueryContext(ctx, "SELECT "+commandColumns+" FROM commands ORDER BY id")
	if err != nil {
		return nil, storage.Internal("list", err)
	}
	defer rows.Close()

	cmds = []models.Command{}
	for rows.Next() {
		var c models.Command
		if err := rows.Scan(&c.ID, &c.HowTo, &c.Platform, &c.CommandLine); err != nil {
			return nil, storage.Internal("list", err)
		}
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("list", err)
	}
	span.SetAttributes(attribute.Int("command.count", len(cmds)))
	return cmds, nil
}

func (s *Store) Get(ctx context.Context, id int64) (c models.Command, err error) {
	ctx, span := s.start(ctx, "get", attribute.Int64("command.id", id))
	defer func() { end(span, err) }()

	row := s.db.QueryRowContext(ctx, s.dialect.Rebind("SELECT "+commandColumns+" FROM commands WHERE id = ?"), id)
	if err := row.Scan(&c.ID, &c.HowTo, &c.Platform, &c.CommandLine); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Command{}, storage.NotFound("get", id)
		}
		return models.Command{}, storage.Internal("get", err)
	}
	return c, nil
}

func (s *Store) Create(ctx context.Context, cmd models.Command) (c models.Command, err error) {
	ctx, span := s.start(ctx, "create")
	defer func() { end(span, err) }()

	row := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("INSERT INTO commands (how_to, platform, command_line) VALUES (?, ?, ?) RETURNING id"),
		cmd.HowTo, cmd.Platform, cmd.CommandLine,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return models.Command{}, classify("create", err)
	}
	cmd.ID = id
	span.SetAttributes(attribute.Int64("command.id", id))
	return cmd, nil
}

func (s *Store) Update(ctx context.Context, cmd models.Command) (err error) {
	ctx, span := s.start(ctx, "update", attribute.Int64("command.id", cmd.ID))
	defer func() { end(span, err) }()

	res, err := s.db.ExecContext(ctx,
		s.dialect.Rebind("UPDATE commands SET how_to = ?, platform = ?, command_line = ? WHERE id = ?"),
		cmd.HowTo, cmd.Platform, cmd.CommandLine, cmd.ID,
	)
	if err != nil {
		return classify("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Internal("update", err)
	}
	if n == 0 {
		return storage.NotFound("update", cmd.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) (c models.Command, err error) {
	ctx, span := s.start(ctx, "delete", attribute.Int64("command.id", id))
	defer func() { end(span, err) }()

	row := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("DELETE FROM commands WHERE id = ? RETURNING "+commandColumns), id)
	if err := row.Scan(&c.ID, &c.HowTo, &c.Platform, &c.CommandLine); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Command{}, storage.NotFound("delete", id)
		}
		return models.Command{}, storage.Internal("delete", err)
	}
	return c, nil
}

func (s *Store) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", string(s.dialect)))
	return s.tracer.Start(ctx, "sqlstore."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil && !storage.IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// classify maps constraint and data errors to storage.KindInvalid.
func classify(op string, err error) error {
	if isConstraintViolation(err) {
		return storage.Invalid(op, err)
	}
	return storage.Internal(op, err)
}

func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 22 is data exception, class 23 integrity constraint violation.
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
	}
	return false
}
