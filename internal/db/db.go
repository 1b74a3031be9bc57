package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	stateDir      = ".shiftlog"
	defaultDBName = "shiftlog.db"
)

type Config struct {
	Workspace string
	// Path overrides the default location. Relative paths resolve against
	// the workspace.
	Path string
}

// Path returns the database file for cfg.
func Path(cfg Config) string {
	workspace := cfg.Workspace
	if workspace == "" {
		workspace = "."
	}
	if cfg.Path == "" {
		return filepath.Join(workspace, stateDir, defaultDBName)
	}
	if filepath.IsAbs(cfg.Path) {
		return cfg.Path
	}
	return filepath.Join(workspace, cfg.Path)
}

// Open opens the SQLite database with foreign keys, WAL and a busy timeout,
// creating the parent directory when missing.
func Open(cfg Config) (*sql.DB, error) {
	path := Path(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
