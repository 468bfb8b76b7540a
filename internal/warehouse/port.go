// Package warehouse is the data access port over the risk planning
// warehouse, with a SQLite-backed implementation.
package warehouse

import "context"

// Port runs statements against the warehouse.
//
// A ConnectivityError is retried once inside the port after reconnecting;
// callers only see it when the retry also fails. Every other failure is
// returned as a QueryError without a retry.
type Port interface {
	// Query runs a read statement and returns its rows in order.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Exec runs a write statement and returns the number of rows affected.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}

// Ensure SQLite implements Port.
var _ Port = (*SQLite)(nil)
