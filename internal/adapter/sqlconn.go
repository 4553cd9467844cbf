package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bit2swaz/dbflood/internal/pool"
)

// sqlConn wraps one dedicated database/sql session. A transaction is begun
// lazily on the first statement and stays open until Commit or Rollback, so
// commit points are always explicit (the JDBC setAutoCommit(false)
// equivalent).
type sqlConn struct {
	conn *sql.Conn
	tx   *sql.Tx
}

func (c *sqlConn) Close() error {
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil {
			slog.Debug("Error rolling back on close", "error", err)
		}
		c.tx = nil
	}
	return c.conn.Close()
}

// begin returns the open transaction, starting one if needed.
func (c *sqlConn) begin(ctx context.Context) (*sql.Tx, error) {
	if c.tx == nil {
		tx, err := c.conn.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		c.tx = tx
	}
	return c.tx, nil
}

func (c *sqlConn) commit() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (c *sqlConn) rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// queryRow routes through the open transaction when there is one, otherwise
// straight through the session.
func (c *sqlConn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}
	return c.conn.QueryRowContext(ctx, query, args...)
}

// asSQLConn rejects connections that did not come from a SQL adapter's pool.
func asSQLConn(conn pool.Conn) (*sqlConn, error) {
	c, ok := conn.(*sqlConn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}
	return c, nil
}
