// Package storage implements local SQLite persistence for auth tokens,
// resume checkpoints, and sync history, generalized from the teacher's
// internal/storage/database.go.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Database is the local SQLite store backing auth.TokenStore and
// engine.ResumeStore, plus a running log of past syncs.
type Database struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite database at dbPath, creating its
// parent directory and schema if needed.
func Open(dbPath string) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Database{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return d, nil
}

func (d *Database) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS auth_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		access_token TEXT,
		refresh_token TEXT,
		token_type TEXT DEFAULT 'Bearer',
		expires_at DATETIME,
		scope TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS resume_info (
		sync_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		mode INTEGER NOT NULL,
		completed_paths TEXT NOT NULL,
		last_checkpoint DATETIME,
		pending_plan TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sync_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_kind INTEGER NOT NULL,
		uploaded INTEGER DEFAULT 0,
		downloaded INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		message TEXT,
		ran_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sync_history_ran_at ON sync_history(ran_at);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	logrus.WithField("component", "storage").Debug("database schema ready")
	return nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// SaveToken implements auth.TokenStore: the table only ever holds one row,
// matching the single-account model the engine operates under.
func (d *Database) SaveToken(token *types.TokenInfo) error {
	if _, err := d.db.Exec("DELETE FROM auth_tokens"); err != nil {
		return fmt.Errorf("clear existing tokens: %w", err)
	}

	_, err := d.db.Exec(
		`INSERT INTO auth_tokens (access_token, refresh_token, token_type, expires_at, scope, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		token.AccessToken, token.RefreshToken, token.TokenType, token.ExpiresAt, token.Scope,
	)
	if err != nil {
		return fmt.Errorf("save auth token: %w", err)
	}
	return nil
}

// LoadToken implements auth.TokenStore.
func (d *Database) LoadToken() (*types.TokenInfo, bool, error) {
	row := d.db.QueryRow(`SELECT access_token, refresh_token, token_type, expires_at, scope
		FROM auth_tokens ORDER BY id DESC LIMIT 1`)

	var token types.TokenInfo
	var expiresAt time.Time
	err := row.Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiresAt, &token.Scope)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load auth token: %w", err)
	}

	token.ExpiresAt = expiresAt
	token.ExpiresIn = int(time.Until(expiresAt).Seconds())
	return &token, true, nil
}

// ClearToken implements auth.TokenStore.
func (d *Database) ClearToken() error {
	_, err := d.db.Exec("DELETE FROM auth_tokens")
	if err != nil {
		return fmt.Errorf("clear auth token: %w", err)
	}
	return nil
}

// Save implements engine.ResumeStore, persisting the completed-paths set
// and remaining plan as JSON so a restarted process can pick up where a
// sync left off.
func (d *Database) Save(info *types.ResumeInfo) error {
	completed, err := json.Marshal(info.CompletedPaths)
	if err != nil {
		return fmt.Errorf("marshal completed paths: %w", err)
	}
	pending, err := json.Marshal(info.PendingPlan)
	if err != nil {
		return fmt.Errorf("marshal pending plan: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT INTO resume_info (sync_id, started_at, mode, completed_paths, last_checkpoint, pending_plan, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(sync_id) DO UPDATE SET
		   completed_paths = excluded.completed_paths,
		   last_checkpoint = excluded.last_checkpoint,
		   pending_plan = excluded.pending_plan,
		   updated_at = CURRENT_TIMESTAMP`,
		info.SyncID, info.StartedAt, int(info.Mode), string(completed), info.LastCheckpoint, string(pending),
	)
	if err != nil {
		return fmt.Errorf("save resume info: %w", err)
	}
	return nil
}

// Load implements engine.ResumeStore.
func (d *Database) Load(syncID string) (*types.ResumeInfo, bool, error) {
	row := d.db.QueryRow(
		`SELECT started_at, mode, completed_paths, last_checkpoint, pending_plan
		 FROM resume_info WHERE sync_id = ?`, syncID,
	)

	var startedAt, lastCheckpoint time.Time
	var mode int
	var completedJSON, pendingJSON string

	err := row.Scan(&startedAt, &mode, &completedJSON, &lastCheckpoint, &pendingJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load resume info: %w", err)
	}

	info := &types.ResumeInfo{
		SyncID:         syncID,
		StartedAt:      startedAt,
		Mode:           types.SyncMode(mode),
		LastCheckpoint: lastCheckpoint,
	}
	if err := json.Unmarshal([]byte(completedJSON), &info.CompletedPaths); err != nil {
		return nil, false, fmt.Errorf("unmarshal completed paths: %w", err)
	}
	if err := json.Unmarshal([]byte(pendingJSON), &info.PendingPlan); err != nil {
		return nil, false, fmt.Errorf("unmarshal pending plan: %w", err)
	}
	return info, true, nil
}

// Delete implements engine.ResumeStore, removing a finished sync's
// checkpoint so a future process restart doesn't try to resume it.
func (d *Database) Delete(syncID string) error {
	_, err := d.db.Exec("DELETE FROM resume_info WHERE sync_id = ?", syncID)
	if err != nil {
		return fmt.Errorf("delete resume info: %w", err)
	}
	return nil
}

// LogSyncResult appends one completed sync's summary to the history table.
func (d *Database) LogSyncResult(result *types.SyncResult) error {
	_, err := d.db.Exec(
		`INSERT INTO sync_history (result_kind, uploaded, downloaded, deleted, skipped, failed, duration_ms, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int(result.Kind), result.Uploaded, result.Downloaded, result.Deleted, result.Skipped, result.Failed,
		result.Duration.Milliseconds(), result.Message,
	)
	if err != nil {
		return fmt.Errorf("log sync result: %w", err)
	}
	return nil
}

// HistoryEntry is one row of past sync activity, as returned by
// RecentHistory.
type HistoryEntry struct {
	Kind       types.ResultKind
	Uploaded   int
	Downloaded int
	Deleted    int
	Skipped    int
	Failed     int
	Duration   time.Duration
	Message    string
	RanAt      time.Time
}

// RecentHistory returns up to limit most recent sync_history rows, newest
// first.
func (d *Database) RecentHistory(limit int) ([]HistoryEntry, error) {
	rows, err := d.db.Query(
		`SELECT result_kind, uploaded, downloaded, deleted, skipped, failed, duration_ms, message, ran_at
		 FROM sync_history ORDER BY ran_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sync history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var kind int
		var durationMS int64
		if err := rows.Scan(&kind, &e.Uploaded, &e.Downloaded, &e.Deleted, &e.Skipped, &e.Failed, &durationMS, &e.Message, &e.RanAt); err != nil {
			return nil, fmt.Errorf("scan sync history row: %w", err)
		}
		e.Kind = types.ResultKind(kind)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
