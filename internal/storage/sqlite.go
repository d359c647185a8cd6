// Package storage provides SQLite persistence for secdash.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DBFile is the database file name inside the data directory.
const DBFile = "secdash.db"

// DB wraps the SQLite database connection.
type DB struct {
	*sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the database in dataDir.
func Open(dataDir string) (*DB, error) {
	dbPath := filepath.Join(dataDir, DBFile)
	conn, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{DB: conn}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func (db *DB) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			taken_at DATETIME NOT NULL,
			status TEXT NOT NULL,
			hosts_monitored INTEGER DEFAULT 0,
			threats_detected INTEGER DEFAULT 0,
			alerts_total INTEGER DEFAULT 0,
			alerts_high INTEGER DEFAULT 0,
			alerts_medium INTEGER DEFAULT 0,
			alerts_low INTEGER DEFAULT 0,
			stats_source TEXT,
			failures INTEGER DEFAULT 0,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			report_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			format TEXT NOT NULL,
			size TEXT,
			created_at DATETIME NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_report_id ON reports(report_id)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// WithLock executes a function with write lock.
func (db *DB) WithLock(fn func() error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

// WithRLock executes a function with read lock.
func (db *DB) WithRLock(fn func() error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn()
}
