package config

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported DATABASE_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN builds the connection string for the configured driver.
func (d Database) DSN() string {
	switch d.Driver {
	case DriverSQLite:
		return filepath.Clean(d.SQLitePath) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		if d.URL != "" {
			return d.URL
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
}

// ConnectDB opens and pings the configured database with a tuned pool.
func ConnectDB(d Database) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, d.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Driver, err)
	}

	db.SetMaxOpenConns(d.MaxOpenConns)
	db.SetMaxIdleConns(d.MaxIdleConns)
	db.SetConnMaxLifetime(d.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Driver, err)
	}

	log.Printf("Connected to %s with connection pooling", d.Driver)
	return db, nil
}
