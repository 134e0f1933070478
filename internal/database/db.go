package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func Open(sqlitePath string) (*sql.DB, error) {
	dir := filepath.Dir(sqlitePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// pragmas below are per-connection
	db.SetMaxOpenConns(1)

	pragmas := []struct {
		name  string
		query string
	}{
		{name: "WAL", query: `PRAGMA journal_mode = WAL;`},
		{name: "busy timeout", query: `PRAGMA busy_timeout = 5000;`},
		{name: "foreign keys", query: `PRAGMA foreign_keys = ON;`},
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma.query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite %s: %w", pragma.name, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}
