package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB owns the connection the store runs on. Pool is nil for sqlite.
type DB struct {
	Pool    *pgxpool.Pool
	Gorm    *gorm.DB
	Dialect Dialect
	sqlDB   *sql.DB
}

// Open picks the backend from the URL scheme: sqlite:/file: URLs use the
// embedded driver, anything else is handed to pgx.
func Open(ctx context.Context, databaseURL string, maxConns int32, minConns int32) (*DB, error) {
	if dsn, ok := sqliteDSN(databaseURL); ok {
		return OpenSQLite(dsn)
	}
	return New(ctx, databaseURL, maxConns, minConns)
}

func New(ctx context.Context, databaseURL string, maxConns int32, minConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("open gorm on pool: %w", err)
	}

	slog.Info("database connected", "dialect", DialectPostgres, "max_conns", maxConns, "min_conns", minConns)
	return &DB{Pool: pool, Gorm: gormDB, Dialect: DialectPostgres, sqlDB: sqlDB}, nil
}

func (db *DB) Close() {
	if db.sqlDB != nil {
		_ = db.sqlDB.Close()
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *DB) Health(ctx context.Context) error {
	if db.Pool != nil {
		return db.Pool.Ping(ctx)
	}
	return db.sqlDB.PingContext(ctx)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  gormLogger(slog.Default()),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// gormLogger routes gorm's warnings and errors through slog. Missing rows are
// an expected outcome of lookups and are not logged.
func gormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(slog.NewLogLogger(logger.Handler(), slog.LevelWarn), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func sqliteDSN(databaseURL string) (string, bool) {
	trimmed := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(trimmed, "sqlite:///"):
		return strings.TrimPrefix(trimmed, "sqlite:///"), true
	case strings.HasPrefix(trimmed, "sqlite://"):
		return strings.TrimPrefix(trimmed, "sqlite://"), true
	case strings.HasPrefix(trimmed, "sqlite:"):
		return strings.TrimPrefix(trimmed, "sqlite:"), true
	case strings.HasPrefix(trimmed, "file:"):
		return trimmed, true
	}
	return "", false
}
