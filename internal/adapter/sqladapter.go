package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bit2swaz/dbflood/internal/pool"
)

// sqlAdapter carries the pooling behavior shared by every database/sql-backed
// variant. Each variant embeds it and supplies the dialect-specific SQL.
type sqlAdapter struct {
	db      *sql.DB
	pool    *pool.Pool
	timeout time.Duration
}

// openPool opens the driver handle, verifies connectivity, and builds the
// harness-owned pool on top of dedicated sessions. database/sql's own idle
// cache is disabled so this pool is the only owner of live connections.
func (a *sqlAdapter) openPool(ctx context.Context, driverName, dsn string, cfg Config) (*pool.Pool, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxPoolSize)
	db.SetMaxIdleConns(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.timeout = cfg.acquireTimeout()
	a.pool = pool.New(a.dial, cfg.MinPoolSize, cfg.MaxPoolSize)
	return a.pool, nil
}

// dial checks one dedicated session out of database/sql. The session stays
// checked out until the pool closes it.
func (a *sqlAdapter) dial() (pool.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	return &sqlConn{conn: conn}, nil
}

func (a *sqlAdapter) GetConnection() (pool.Conn, error) {
	if a.pool == nil {
		return nil, fmt.Errorf("connection pool not created")
	}
	return a.pool.Acquire(a.timeout)
}

func (a *sqlAdapter) ReleaseConnection(conn pool.Conn, isError bool) {
	if conn == nil {
		return
	}
	if isError {
		a.Rollback(conn)
	}
	a.pool.Release(conn)
}

func (a *sqlAdapter) ClosePool() {
	if a.pool != nil {
		a.pool.CloseAll()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Debug("Error closing database handle", "error", err)
		}
	}
}

func (a *sqlAdapter) Commit(conn pool.Conn) error {
	c, err := asSQLConn(conn)
	if err != nil {
		return err
	}
	return c.commit()
}

func (a *sqlAdapter) Rollback(conn pool.Conn) {
	c, err := asSQLConn(conn)
	if err != nil {
		return
	}
	if err := c.rollback(); err != nil {
		slog.Debug("Rollback failed", "error", err)
	}
}

// scanRow reads the verification columns, mapping sql.ErrNoRows to a nil Row.
func scanRow(r *sql.Row) (*Row, error) {
	var row Row
	if err := r.Scan(&row.ID, &row.WorkerID, &row.Value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select failed: %w", err)
	}
	return &row, nil
}
