package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by statements issued after Close.
var ErrClosed = errors.New("warehouse is closed")

const conflictBackoff = 100 * time.Millisecond

// Options tunes the SQLite port.
type Options struct {
	// QueryTimeout bounds each statement; zero means no timeout.
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

// SQLite implements Port on a local SQLite file.
type SQLite struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.RWMutex
	db         *sql.DB
	closed     bool
	reconnects atomic.Int64
}

// Open opens (creating if needed) the warehouse file and its schema.
func Open(dbPath string, opts Options) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLite{
		path:    dbPath,
		timeout: opts.QueryTimeout,
		logger:  logger,
		db:      db,
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	// WAL mode lets report reads proceed while a work order insert commits.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Query implements Port.
func (s *SQLite) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	var rows []Row
	err := s.withRetry(ctx, "query", query, func(ctx context.Context, db *sql.DB) error {
		var qerr error
		rows, qerr = queryRows(ctx, db, query, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec implements Port.
func (s *SQLite) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := s.withRetry(ctx, "exec", query, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Ping implements Port.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.withRetry(ctx, "ping", "", func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	})
}

// Reconnects returns how many times the connection pool was rebuilt.
func (s *SQLite) Reconnects() int64 {
	return s.reconnects.Load()
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// withRetry runs fn once and, on a connectivity failure, once more after
// reconnecting (or backing off for lock conflicts).
func (s *SQLite) withRetry(ctx context.Context, op, query string, fn func(context.Context, *sql.DB) error) error {
	err := s.run(ctx, op, query, fn)
	if err == nil || !IsConnectivity(err) {
		return err
	}

	if isConflict(err) {
		s.logger.Debug("Warehouse busy, retrying", "op", op, "delay", conflictBackoff)
		select {
		case <-time.After(conflictBackoff):
		case <-ctx.Done():
			return classify(op, query, ctx.Err())
		}
	} else {
		s.logger.Warn("Warehouse connection lost, reconnecting", "op", op, "error", err)
		if rerr := s.reconnect(); rerr != nil {
			return &ConnectivityError{Op: op, Err: fmt.Errorf("reconnect failed: %w (after %v)", rerr, err)}
		}
	}

	return s.run(ctx, op, query, fn)
}

func (s *SQLite) run(ctx context.Context, op, query string, fn func(context.Context, *sql.DB) error) error {
	s.mu.RLock()
	db, closed := s.db, s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return classify(op, query, fn(ctx, db))
}

func (s *SQLite) reconnect() error {
	db, err := openDB(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = db.Close()
		return ErrClosed
	}
	old := s.db
	s.db = db
	s.mu.Unlock()

	s.reconnects.Add(1)
	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Debug("Closing stale warehouse pool failed", "error", err)
		}
	}
	return nil
}

func queryRows(ctx context.Context, db *sql.DB, query string, args ...any) ([]Row, error) {
	rs, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []Row
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = Field{Name: c, Value: v}
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
