package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// SQL driver names accepted by NewSQLStore.
const (
	DriverNameSQLite   = "sqlite"
	DriverNamePostgres = "pgx"
)

const schema = `CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	ts          BIGINT NOT NULL,
	operation   TEXT NOT NULL,
	adapter     TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL DEFAULT '',
	input       TEXT,
	output      TEXT,
	success     BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0
)`

const index = `CREATE INDEX IF NOT EXISTS history_ts_id ON history (ts, id)`

const columns = `id, ts, operation, adapter, mode, input, output, success, error, duration_ms`

// SQLStore persists entries in a single SQL table. It serves both SQLite
// and PostgreSQL; timestamps are stored as Unix nanoseconds.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens dsn with driver ("sqlite" or "pgx") and creates the
// table when missing. For SQLite, dsn is a file path whose parent
// directories are created.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverNameSQLite:
		if dsn == "" {
			return nil, errors.InvalidInput("history.dsn", "sqlite path required")
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
	case DriverNamePostgres:
		if dsn == "" {
			return nil, errors.InvalidInput("history.dsn", "postgres DSN required")
		}
	default:
		return nil, errors.InvalidInput("history.driver", "unknown SQL driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverNameSQLite {
		// A single connection serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	for _, stmt := range []string{schema, index} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create history table: %w", err)
		}
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverNamePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record implements Store.
func (s *SQLStore) Record(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO history (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Timestamp.UnixNano(), e.Operation, e.Adapter, e.Mode,
		nullJSON(e.Input), nullJSON(e.Output), e.Success, e.Error, e.DurationMS)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return e, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, q.Operation)
	}
	if q.Adapter != "" {
		where = append(where, "adapter = ?")
		args = append(args, q.Adapter)
	}
	if !q.From.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		where = append(where, "ts < ?")
		args = append(args, q.To.UnixNano())
	}

	query := `SELECT ` + columns + ` FROM history`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if q.Ascending {
		query += ` ORDER BY ts ASC, id ASC`
	} else {
		query += ` ORDER BY ts DESC, id DESC`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+columns+` FROM history WHERE id = ?`), id)
	e, err := scanEntry(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Entry{}, errors.New(errors.ErrCodeNotFound, "history entry %q", id)
	}
	return e, err
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e             Entry
		ts            int64
		input, output sql.NullString
	)
	if err := sc.Scan(&e.ID, &ts, &e.Operation, &e.Adapter, &e.Mode,
		&input, &output, &e.Success, &e.Error, &e.DurationMS); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	e.Timestamp = fromNanos(ts)
	if input.Valid {
		e.Input = []byte(input.String)
	}
	if output.Valid {
		e.Output = []byte(output.String)
	}
	return e, nil
}

func nullJSON(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
