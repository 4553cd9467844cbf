package adapter

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bit2swaz/dbflood/internal/pool"
	_ "github.com/lib/pq"
)

func init() {
	register(func() Adapter { return &postgresAdapter{} }, "postgresql", "postgres", "pg")
}

// postgresAdapter drives PostgreSQL through lib/pq. Generated identifiers
// come back via INSERT ... RETURNING.
type postgresAdapter struct {
	sqlAdapter
}

func (a *postgresAdapter) CreatePool(ctx context.Context, cfg Config) (*pool.Pool, error) {
	dsn, err := postgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return a.openPool(ctx, "postgres", dsn, cfg)
}

func postgresDSN(cfg Config) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("postgresql: host is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("postgresql: database is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

func (a *postgresAdapter) ExecuteInsert(ctx context.Context, conn pool.Conn, workerID, payload string) (int64, error) {
	c, err := asSQLConn(conn)
	if err != nil {
		return 0, err
	}
	tx, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO load_test (worker_id, value_col, random_data, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id`,
		workerID, "TEST_"+workerID, payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %w", err)
	}
	return id, nil
}

func (a *postgresAdapter) ExecuteSelect(ctx context.Context, conn pool.Conn, id int64) (*Row, error) {
	c, err := asSQLConn(conn)
	if err != nil {
		return nil, err
	}
	return scanRow(c.queryRow(ctx,
		`SELECT id, worker_id, value_col FROM load_test WHERE id = $1`, id))
}

func (a *postgresAdapter) DDL() string {
	return `
-- ============================================================================
-- PostgreSQL DDL
-- ============================================================================

CREATE TABLE load_test (
    id           BIGSERIAL       PRIMARY KEY,
    worker_id    VARCHAR(50)     NOT NULL,
    value_col    VARCHAR(200),
    random_data  VARCHAR(1000),
    status       VARCHAR(20)     DEFAULT 'ACTIVE',
    created_at   TIMESTAMP       DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP       DEFAULT CURRENT_TIMESTAMP
) PARTITION BY HASH (id);

-- 16 hash partitions
CREATE TABLE load_test_p00 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 0);
CREATE TABLE load_test_p01 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 1);
CREATE TABLE load_test_p02 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 2);
CREATE TABLE load_test_p03 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 3);
CREATE TABLE load_test_p04 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 4);
CREATE TABLE load_test_p05 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 5);
CREATE TABLE load_test_p06 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 6);
CREATE TABLE load_test_p07 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 7);
CREATE TABLE load_test_p08 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 8);
CREATE TABLE load_test_p09 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 9);
CREATE TABLE load_test_p10 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 10);
CREATE TABLE load_test_p11 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 11);
CREATE TABLE load_test_p12 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 12);
CREATE TABLE load_test_p13 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 13);
CREATE TABLE load_test_p14 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 14);
CREATE TABLE load_test_p15 PARTITION OF load_test FOR VALUES WITH (MODULUS 16, REMAINDER 15);

CREATE INDEX idx_load_test_worker ON load_test(worker_id, created_at);
CREATE INDEX idx_load_test_created ON load_test(created_at);
`
}
