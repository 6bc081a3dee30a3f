package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"AptScanner/internal/domain"
	"AptScanner/internal/ports"
)

// DefaultTable is the seen-set table created by the embedded migrations.
const DefaultTable = "seen_posts"

// Dialect selects driver, placeholder style and migration dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) placeholders() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// SQLStore persists seen posts into Postgres or SQLite.
type SQLStore struct {
	db      *sql.DB
	table   string
	builder sq.StatementBuilderType
}

var (
	_ ports.SeenStore     = (*SQLStore)(nil)
	_ ports.ExpiringStore = (*SQLStore)(nil)
)

// NewSQLStore wires a sql.DB implementation.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		table:   DefaultTable,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholders()),
	}
}

// OpenSQL opens the database for the dialect and checks connectivity.
func OpenSQL(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if d == DialectSQLite {
		// a single writer keeps :memory: databases and file locks sane
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return db, nil
}

// SeenIDs returns every post id whose expiry is after now.
func (r *SQLStore) SeenIDs(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	query, args, err := r.builder.
		Select("post_id").
		From(r.table).
		Where(sq.Gt{"expires_at": now.Unix()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen: %w", err)
	}

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = struct{}{}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Put inserts the record once; an existing post id is left untouched.
func (r *SQLStore) Put(ctx context.Context, record domain.SeenRecord) error {
	query, args, err := r.builder.
		Insert(r.table).
		Columns("post_id", "title", "found_at", "status", "reason", "expires_at").
		Values(
			record.PostID,
			record.Title,
			record.FoundAt.UTC().Format(time.RFC3339),
			nullable(string(record.Status)),
			nullable(record.Reason),
			record.ExpiresAt.Unix(),
		).
		Suffix("ON CONFLICT (post_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert seen %s: %w", record.PostID, err)
	}
	return nil
}

// PurgeExpired deletes records past their expiry, standing in for a native TTL.
func (r *SQLStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := r.builder.
		Delete(r.table).
		Where(sq.LtOrEq{"expires_at": now.Unix()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
