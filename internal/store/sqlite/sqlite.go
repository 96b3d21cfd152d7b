// Package sqlite implements store.Store on SQLite. It backs local
// single-node deployments and the storetest conformance suite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
)

// Open opens (or creates) a SQLite database at the given path with WAL
// journal mode enabled.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens an in-memory database, used by tests.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, err
	}
	// A shared-cache memory DB disappears when the last connection closes.
	db.SetMaxIdleConns(1)
	return db, nil
}

// EnsureSchema creates the tracker tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            user_id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            display_name TEXT,
            time_zone TEXT NOT NULL,
            role TEXT NOT NULL,
            status TEXT NOT NULL,
            creation_time TIMESTAMP NOT NULL,
            last_active_time TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS template_sets (
            role TEXT NOT NULL,
            version INTEGER NOT NULL,
            is_active INTEGER NOT NULL DEFAULT 0,
            payload TEXT NOT NULL,
            creation_time TIMESTAMP NOT NULL,
            PRIMARY KEY(role, version)
        );`,
		`CREATE TABLE IF NOT EXISTS day_records (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            wake_time TEXT,
            user_timezone TEXT NOT NULL,
            creation_time TIMESTAMP NOT NULL,
            PRIMARY KEY(user_id, date)
        );`,
		`CREATE TABLE IF NOT EXISTS day_checklist_completions (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            checklist_id TEXT NOT NULL,
            completed_at TIMESTAMP,
            notes TEXT NOT NULL DEFAULT '',
            PRIMARY KEY(user_id, date, checklist_id)
        );`,
		`CREATE TABLE IF NOT EXISTS day_checklist_items (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            checklist_id TEXT NOT NULL,
            item_id TEXT NOT NULL,
            item_text TEXT NOT NULL DEFAULT '',
            completed_at TIMESTAMP NOT NULL,
            PRIMARY KEY(user_id, date, checklist_id, item_id)
        );`,
		`CREATE TABLE IF NOT EXISTS day_block_completions (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            block_id TEXT NOT NULL,
            completed_at TIMESTAMP NOT NULL,
            block_index INTEGER NOT NULL,
            tz_offset_minutes INTEGER NOT NULL,
            local_time TEXT NOT NULL,
            PRIMARY KEY(user_id, date, block_id)
        );`,
		`CREATE TABLE IF NOT EXISTS day_block_notes (
            note_id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            block_id TEXT NOT NULL,
            note TEXT NOT NULL,
            creation_time TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_day_block_notes_day
            ON day_block_notes(user_id, date, block_id);`,
		`CREATE TABLE IF NOT EXISTS day_todos (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            item_id TEXT NOT NULL,
            text TEXT NOT NULL,
            completed INTEGER NOT NULL DEFAULT 0,
            completed_at TIMESTAMP,
            due_date TEXT,
            creation_time TIMESTAMP NOT NULL,
            PRIMARY KEY(user_id, date, item_id)
        );`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

// New constructs a SQLite-backed store over an open connection.
func New(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Users() store.Users         { return &users{db: s.db} }
func (s *sqliteStore) Templates() store.Templates { return &templates{db: s.db} }
func (s *sqliteStore) Days() store.Days           { return &days{db: s.db} }

// HealthPing implements health probing for the SQLite-backed store.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	now := time.Now().UTC()
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, role, status, creation_time)
        VALUES (?,?,?,?,?,?,?)
    `, m.UserID, m.Email, m.DisplayName, m.TimeZone, m.Role, "ACTIVE", now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.Status = "ACTIVE"
	out.CreationTime = now
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	var last *time.Time
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, role, status, creation_time, last_active_time
        FROM users WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.DisplayName, &out.TimeZone, &out.Role, &out.Status, &out.CreationTime, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out.LastActiveTime = last
	return &out, nil
}

func (u *users) Delete(ctx context.Context, userID string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE user_id=?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Templates ---

type templates struct{ db *sql.DB }

// templatePayload is the JSON document stored per template version.
type templatePayload struct {
	TimeBlocks []model.TimeBlockDefinition `json:"timeBlocks"`
	Checklists []model.ChecklistDefinition `json:"checklists"`
}

func (t *templates) PutVersion(ctx context.Context, ts *model.TemplateSet) (*model.TemplateSet, error) {
	payload, err := json.Marshal(templatePayload{TimeBlocks: ts.TimeBlocks, Checklists: ts.Checklists})
	if err != nil {
		return nil, err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM template_sets WHERE role=?`, ts.Role,
	).Scan(&next); err != nil {
		return nil, err
	}
	if ts.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE template_sets SET is_active=0 WHERE role=?`, ts.Role); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO template_sets (role, version, is_active, payload, creation_time)
        VALUES (?,?,?,?,?)
    `, ts.Role, next, boolToInt(ts.IsActive), string(payload), now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := *ts
	out.Version = next
	out.CreationTime = now
	return &out, nil
}

func (t *templates) GetActive(ctx context.Context, role string) (*model.TemplateSet, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT role, version, is_active, payload, creation_time
        FROM template_sets WHERE role=? AND is_active=1
    `, role)
	return scanTemplate(row)
}

func (t *templates) GetVersion(ctx context.Context, role string, version int) (*model.TemplateSet, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT role, version, is_active, payload, creation_time
        FROM template_sets WHERE role=? AND version=?
    `, role, version)
	return scanTemplate(row)
}

func (t *templates) ListVersions(ctx context.Context, role string) ([]*model.TemplateSet, error) {
	rows, err := t.db.QueryContext(ctx, `
        SELECT role, version, is_active, payload, creation_time
        FROM template_sets WHERE role=? ORDER BY version DESC
    `, role)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.TemplateSet
	for rows.Next() {
		ts, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ts)
	}
	return res, rows.Err()
}

func (t *templates) Activate(ctx context.Context, role string, version int) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE template_sets SET is_active=1 WHERE role=? AND version=?`, role, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE template_sets SET is_active=0 WHERE role=? AND version<>?`, role, version); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanTemplate(row rowScanner) (*model.TemplateSet, error) {
	var out model.TemplateSet
	var active int
	var payload string
	if err := row.Scan(&out.Role, &out.Version, &active, &payload, &out.CreationTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	var p templatePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("template payload: %w", err)
	}
	out.IsActive = active == 1
	out.TimeBlocks = p.TimeBlocks
	out.Checklists = p.Checklists
	return &out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
