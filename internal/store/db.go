package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewDB opens a PostgreSQL connection pool and verifies connectivity.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
