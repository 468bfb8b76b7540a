package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// ConnectivityError means a statement could not complete because the
// connection or its credentials failed. The port retries these once.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("warehouse %s: connectivity: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// QueryError is any other statement failure: bad SQL, missing relation,
// constraint violation, timeout. It is never retried.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("warehouse query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsConnectivity reports whether err is (or wraps) a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// classify wraps a driver error as ConnectivityError or QueryError.
func classify(op, query string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	var qe *QueryError
	if errors.As(err, &ce) || errors.As(err, &qe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &QueryError{SQL: abbreviate(query), Err: err}
	}
	if isConnectionLost(err) || isConflict(err) || isCredentialExpired(err) {
		return &ConnectivityError{Op: op, Err: err}
	}
	return &QueryError{SQL: abbreviate(query), Err: err}
}

func isConnectionLost(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}

// isConflict matches SQLITE_BUSY and "database is locked", which clear on
// their own and warrant a retry without reconnecting.
func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// isCredentialExpired matches session-token expiry reported by hosted
// warehouses (error 390114 or "token ... expired").
func isCredentialExpired(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "390114") ||
		(strings.Contains(msg, "token") && strings.Contains(msg, "expired"))
}

func abbreviate(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if len(q) > 200 {
		return q[:200] + "..."
	}
	return q
}
