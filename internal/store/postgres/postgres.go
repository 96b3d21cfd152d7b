// Package postgres implements store.Store on PostgreSQL via the pgx
// stdlib driver. All day mutations are single-statement, field-scoped
// updates (ON CONFLICT DO NOTHING / keyed DELETE) so concurrent writers
// touching distinct items never lose updates.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users         { return &users{db: s.db} }
func (s *pgStore) Templates() store.Templates { return &templates{db: s.db} }
func (s *pgStore) Days() store.Days           { return &days{db: s.db} }

// HealthPing implements health probing for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap applies the tracker schema. Statements are idempotent so the
// call is safe on every startup.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            user_id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            display_name TEXT,
            time_zone TEXT NOT NULL,
            role TEXT NOT NULL,
            status TEXT NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            last_active_time TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS template_sets (
            role TEXT NOT NULL,
            version INT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT FALSE,
            payload JSONB NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY(role, version)
        )`,
		`CREATE TABLE IF NOT EXISTS day_records (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            wake_time TEXT,
            user_timezone TEXT NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY(user_id, date)
        )`,
		`CREATE TABLE IF NOT EXISTS day_checklist_completions (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            checklist_id TEXT NOT NULL,
            completed_at TIMESTAMPTZ,
            notes TEXT NOT NULL DEFAULT '',
            PRIMARY KEY(user_id, date, checklist_id)
        )`,
		`CREATE TABLE IF NOT EXISTS day_checklist_items (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            checklist_id TEXT NOT NULL,
            item_id TEXT NOT NULL,
            item_text TEXT NOT NULL DEFAULT '',
            completed_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY(user_id, date, checklist_id, item_id)
        )`,
		`CREATE TABLE IF NOT EXISTS day_block_completions (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            block_id TEXT NOT NULL,
            completed_at TIMESTAMPTZ NOT NULL,
            block_index INT NOT NULL,
            tz_offset_minutes INT NOT NULL,
            local_time TEXT NOT NULL,
            PRIMARY KEY(user_id, date, block_id)
        )`,
		`CREATE TABLE IF NOT EXISTS day_block_notes (
            note_id BIGSERIAL PRIMARY KEY,
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            block_id TEXT NOT NULL,
            note TEXT NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_day_block_notes_day
            ON day_block_notes(user_id, date, block_id)`,
		`CREATE TABLE IF NOT EXISTS day_todos (
            user_id TEXT NOT NULL,
            date TEXT NOT NULL,
            item_id TEXT NOT NULL,
            text TEXT NOT NULL,
            completed BOOLEAN NOT NULL DEFAULT FALSE,
            completed_at TIMESTAMPTZ,
            due_date TEXT,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY(user_id, date, item_id)
        )`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres bootstrap: %w", err)
		}
	}
	return nil
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	var created time.Time
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, role, status)
        VALUES ($1,$2,$3,$4,$5,'ACTIVE')
        RETURNING creation_time
    `, m.UserID, m.Email, m.DisplayName, m.TimeZone, m.Role)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.Status = "ACTIVE"
	out.CreationTime = created
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	var last *time.Time
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, role, status, creation_time, last_active_time
        FROM users WHERE user_id=$1
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
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE user_id=$1`, userID)
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

type templatePayload struct {
	TimeBlocks []model.TimeBlockDefinition `json:"timeBlocks"`
	Checklists []model.ChecklistDefinition `json:"checklists"`
}

func (t *templates) PutVersion(ctx context.Context, ts *model.TemplateSet) (*model.TemplateSet, error) {
	payload, err := json.Marshal(templatePayload{TimeBlocks: ts.TimeBlocks, Checklists: ts.Checklists})
	if err != nil {
		return nil, err
	}
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM template_sets WHERE role=$1`, ts.Role,
	).Scan(&next); err != nil {
		return nil, err
	}
	if ts.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE template_sets SET is_active=FALSE WHERE role=$1`, ts.Role); err != nil {
			return nil, err
		}
	}
	var created time.Time
	if err := tx.QueryRowContext(ctx, `
        INSERT INTO template_sets (role, version, is_active, payload)
        VALUES ($1,$2,$3,$4)
        RETURNING creation_time
    `, ts.Role, next, ts.IsActive, payload).Scan(&created); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := *ts
	out.Version = next
	out.CreationTime = created
	return &out, nil
}

func (t *templates) GetActive(ctx context.Context, role string) (*model.TemplateSet, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT role, version, is_active, payload, creation_time
        FROM template_sets WHERE role=$1 AND is_active
    `, role)
	return scanTemplate(row)
}

func (t *templates) GetVersion(ctx context.Context, role string, version int) (*model.TemplateSet, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT role, version, is_active, payload, creation_time
        FROM template_sets WHERE role=$1 AND version=$2
    `, role, version)
	return scanTemplate(row)
}

func (t *templates) ListVersions(ctx context.Context, role string) ([]*model.TemplateSet, error) {
	rows, err := t.db.QueryContext(ctx, `
        SELECT role, version, is_active, payload, creation_time
        FROM template_sets WHERE role=$1 ORDER BY version DESC
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
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE template_sets SET is_active=TRUE WHERE role=$1 AND version=$2`, role, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE template_sets SET is_active=FALSE WHERE role=$1 AND version<>$2`, role, version); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanTemplate(row rowScanner) (*model.TemplateSet, error) {
	var out model.TemplateSet
	var payload []byte
	if err := row.Scan(&out.Role, &out.Version, &out.IsActive, &payload, &out.CreationTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	var p templatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("template payload: %w", err)
	}
	out.TimeBlocks = p.TimeBlocks
	out.Checklists = p.Checklists
	return &out, nil
}
