package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dog-marker/internal/geo"
)

const sqliteDriverName = "sqlite3_dog_marker"

func init() {
	// haversine_km mirrors the SQL function the Postgres migration creates.
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("haversine_km", geo.DistanceKm, true)
		},
	})
}

func OpenSQLite(dsn string) (*DB, error) {
	dsn = withForeignKeys(dsn)

	gormDB, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: sqliteDriverName, DSN: dsn}), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// One writer; also keeps in-memory databases alive for the process lifetime.
	sqlDB.SetMaxOpenConns(1)

	slog.Info("database connected", "dialect", DialectSQLite, "dsn", dsn)
	return &DB{Gorm: gormDB, Dialect: DialectSQLite, sqlDB: sqlDB}, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
