package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evolutech-console/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ApplicationName tags every connection in pg_stat_activity and Redis CLIENT LIST.
const ApplicationName = "evolutech-console"

// The audit store only runs single-row INSERTs and small SELECTs.
const (
	auditMaxOpenConns    = 10
	auditMaxIdleConns    = 5
	auditConnMaxLifetime = 30 * time.Minute
	auditConnMaxIdleTime = 5 * time.Minute
	postgresPingTimeout  = 5 * time.Second
)

// PostgresConnConfig parses the audit database settings into a pgx config.
func PostgresConnConfig(cfg config.DBConfig) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(cfg.URL("postgres"))
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	cc.RuntimeParams["application_name"] = ApplicationName
	return cc, nil
}

// OpenPostgres opens the audit database through the pgx stdlib adapter and
// fails fast if it cannot be reached.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	cc, err := PostgresConnConfig(cfg)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*cc)
	db.SetMaxOpenConns(auditMaxOpenConns)
	db.SetMaxIdleConns(auditMaxIdleConns)
	db.SetConnMaxLifetime(auditConnMaxLifetime)
	db.SetConnMaxIdleTime(auditConnMaxIdleTime)

	if err := PingPostgres(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func PingPostgres(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}
