package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver for local runs

	"spotbroker/internal/platform/config"
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = Open(config.AppConfig.DBDriver, config.AppConfig.DSN())
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	fmt.Printf("Successfully connected to %s database!\n", config.AppConfig.DBDriver)
}

// Open connects with the given driver ("pgx" or "sqlite") and applies the schema.
func Open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case "sqlite":
		// A single writer avoids SQLITE_BUSY between concurrent sessions.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS charges (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  job_id TEXT NOT NULL,
  reason TEXT NOT NULL CHECK (reason IN ('user','provider','none')),
  spot_cost DOUBLE PRECISION NOT NULL,
  amount DOUBLE PRECISION NOT NULL,
  running_time_ms BIGINT NOT NULL,
  waiting_time_ms BIGINT NOT NULL,
  rebuy_count INTEGER NOT NULL,
  from_account BIGINT NOT NULL,
  to_account BIGINT NOT NULL,
  status TEXT NOT NULL,
  error_message TEXT,
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_charges_session ON charges (session_id);
CREATE INDEX IF NOT EXISTS idx_charges_from_account ON charges (from_account);
`
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		fmt.Println("Database connection closed.")
	}
}
