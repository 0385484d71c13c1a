package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atharvakonge/stocksim/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Open connects to Postgres, applies the pool settings and pings.
func Open(ctx context.Context, cfg config.Postgres) (*sql.DB, error) {
	return OpenDSN(ctx, cfg.DSN(), cfg)
}

// OpenDSN is Open with an explicit connection string, used by tests.
func OpenDSN(ctx context.Context, dsn string, pool config.Postgres) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	return conn, nil
}
