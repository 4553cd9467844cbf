package adapter

import (
	"context"
	"fmt"

	"github.com/bit2swaz/dbflood/internal/pool"
	sf "github.com/snowflakedb/gosnowflake"
)

func init() {
	register(func() Adapter { return &snowflakeAdapter{} }, "snowflake", "sf")
}

// snowflakeAdapter drives Snowflake through gosnowflake. Snowflake has no
// INSERT ... RETURNING, so identifiers are drawn from a sequence first and
// inserted explicitly, the same pattern Oracle-family databases use.
type snowflakeAdapter struct {
	sqlAdapter
}

func (a *snowflakeAdapter) CreatePool(ctx context.Context, cfg Config) (*pool.Pool, error) {
	dsn, err := snowflakeDSN(cfg)
	if err != nil {
		return nil, err
	}
	return a.openPool(ctx, "snowflake", dsn, cfg)
}

// snowflakeDSN maps the generic connection config onto gosnowflake. Host
// carries the account identifier; SID doubles as the schema name.
func snowflakeDSN(cfg Config) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("snowflake: host (account identifier) is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("snowflake: database is required")
	}
	schema := cfg.SID
	if schema == "" {
		schema = "PUBLIC"
	}
	dsn, err := sf.DSN(&sf.Config{
		Account:  cfg.Host,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		Schema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("snowflake: failed to build DSN: %w", err)
	}
	return dsn, nil
}

func (a *snowflakeAdapter) ExecuteInsert(ctx context.Context, conn pool.Conn, workerID, payload string) (int64, error) {
	c, err := asSQLConn(conn)
	if err != nil {
		return 0, err
	}
	tx, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT load_test_seq.NEXTVAL`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to draw sequence value: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO load_test (id, worker_id, value_col, random_data, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP())`,
		id, workerID, "TEST_"+workerID, payload)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %w", err)
	}
	return id, nil
}

func (a *snowflakeAdapter) ExecuteSelect(ctx context.Context, conn pool.Conn, id int64) (*Row, error) {
	c, err := asSQLConn(conn)
	if err != nil {
		return nil, err
	}
	return scanRow(c.queryRow(ctx,
		`SELECT id, worker_id, value_col FROM load_test WHERE id = ?`, id))
}

func (a *snowflakeAdapter) DDL() string {
	return `
-- ============================================================================
-- Snowflake DDL
-- ============================================================================

CREATE SEQUENCE load_test_seq
    START WITH 1
    INCREMENT BY 1;

CREATE TABLE load_test (
    id           NUMBER(19)      NOT NULL,
    worker_id    VARCHAR(50)     NOT NULL,
    value_col    VARCHAR(200),
    random_data  VARCHAR(1000),
    status       VARCHAR(20)     DEFAULT 'ACTIVE',
    created_at   TIMESTAMP_NTZ   DEFAULT CURRENT_TIMESTAMP(),
    updated_at   TIMESTAMP_NTZ   DEFAULT CURRENT_TIMESTAMP(),
    CONSTRAINT pk_load_test PRIMARY KEY (id)
);
`
}
