package adapter

import (
	"context"
	"fmt"

	"github.com/bit2swaz/dbflood/internal/pool"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	register(func() Adapter { return &sqliteAdapter{} }, "sqlite", "sqlite3")
}

// sqliteAdapter drives a local SQLite file. It exists mainly as a
// zero-dependency smoke-test target; identifiers come from
// last_insert_rowid().
type sqliteAdapter struct {
	sqlAdapter
}

func (a *sqliteAdapter) CreatePool(ctx context.Context, cfg Config) (*pool.Pool, error) {
	path := cfg.Database
	if path == "" {
		path = "dbflood.db"
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	return a.openPool(ctx, "sqlite3", dsn, cfg)
}

func (a *sqliteAdapter) ExecuteInsert(ctx context.Context, conn pool.Conn, workerID, payload string) (int64, error) {
	c, err := asSQLConn(conn)
	if err != nil {
		return 0, err
	}
	tx, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO load_test (worker_id, value_col, random_data, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		workerID, "TEST_"+workerID, payload)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read generated id: %w", err)
	}
	return id, nil
}

func (a *sqliteAdapter) ExecuteSelect(ctx context.Context, conn pool.Conn, id int64) (*Row, error) {
	c, err := asSQLConn(conn)
	if err != nil {
		return nil, err
	}
	return scanRow(c.queryRow(ctx,
		`SELECT id, worker_id, value_col FROM load_test WHERE id = ?`, id))
}

func (a *sqliteAdapter) DDL() string {
	return `
-- ============================================================================
-- SQLite DDL
-- ============================================================================

CREATE TABLE load_test (
    id           INTEGER         PRIMARY KEY AUTOINCREMENT,
    worker_id    TEXT            NOT NULL,
    value_col    TEXT,
    random_data  TEXT,
    status       TEXT            DEFAULT 'ACTIVE',
    created_at   TIMESTAMP       DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP       DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_load_test_worker ON load_test(worker_id, created_at);
CREATE INDEX idx_load_test_created ON load_test(created_at);
`
}
