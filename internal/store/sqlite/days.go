package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/amptracker/amp-tracker/internal/model"
)

type days struct{ db *sql.DB }

func (d *days) Get(ctx context.Context, userID, date string) (*model.DayRecord, error) {
	rec := &model.DayRecord{
		UserID:               userID,
		Date:                 date,
		ChecklistCompletions: map[string]*model.ChecklistCompletion{},
	}
	row := d.db.QueryRowContext(ctx, `
        SELECT wake_time, user_timezone, creation_time
        FROM day_records WHERE user_id=? AND date=?
    `, userID, date)
	if err := row.Scan(&rec.WakeTime, &rec.UserTimezone, &rec.CreationTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	if err := d.loadChecklists(ctx, rec); err != nil {
		return nil, err
	}
	if err := d.loadBlocks(ctx, rec); err != nil {
		return nil, err
	}
	if err := d.loadTodos(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (d *days) loadChecklists(ctx context.Context, rec *model.DayRecord) error {
	rows, err := d.db.QueryContext(ctx, `
        SELECT checklist_id, completed_at, notes
        FROM day_checklist_completions WHERE user_id=? AND date=?
    `, rec.UserID, rec.Date)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		cc := &model.ChecklistCompletion{}
		if err := rows.Scan(&cc.ChecklistID, &cc.CompletedAt, &cc.Notes); err != nil {
			return err
		}
		rec.ChecklistCompletions[cc.ChecklistID] = cc
	}
	if err := rows.Err(); err != nil {
		return err
	}

	itemRows, err := d.db.QueryContext(ctx, `
        SELECT checklist_id, item_id, item_text, completed_at
        FROM day_checklist_items WHERE user_id=? AND date=?
        ORDER BY completed_at, item_id
    `, rec.UserID, rec.Date)
	if err != nil {
		return err
	}
	defer func() { _ = itemRows.Close() }()
	for itemRows.Next() {
		var checklistID string
		var item model.ItemCompletion
		if err := itemRows.Scan(&checklistID, &item.ItemID, &item.Text, &item.CompletedAt); err != nil {
			return err
		}
		cc := rec.ChecklistCompletions[checklistID]
		if cc == nil {
			cc = &model.ChecklistCompletion{ChecklistID: checklistID}
			rec.ChecklistCompletions[checklistID] = cc
		}
		cc.Items = append(cc.Items, item)
	}
	return itemRows.Err()
}

func (d *days) loadBlocks(ctx context.Context, rec *model.DayRecord) error {
	noteRows, err := d.db.QueryContext(ctx, `
        SELECT block_id, note FROM day_block_notes
        WHERE user_id=? AND date=? ORDER BY note_id
    `, rec.UserID, rec.Date)
	if err != nil {
		return err
	}
	defer func() { _ = noteRows.Close() }()
	for noteRows.Next() {
		var blockID, note string
		if err := noteRows.Scan(&blockID, &note); err != nil {
			return err
		}
		if rec.BlockNotes == nil {
			rec.BlockNotes = map[string][]string{}
		}
		rec.BlockNotes[blockID] = append(rec.BlockNotes[blockID], note)
	}
	if err := noteRows.Err(); err != nil {
		return err
	}

	rows, err := d.db.QueryContext(ctx, `
        SELECT block_id, completed_at, block_index, tz_offset_minutes, local_time
        FROM day_block_completions WHERE user_id=? AND date=?
        ORDER BY block_index, block_id
    `, rec.UserID, rec.Date)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var c model.TimeBlockCompletion
		if err := rows.Scan(&c.BlockID, &c.CompletedAt, &c.BlockIndex, &c.TimezoneOffsetMinutes, &c.LocalTimeUsed); err != nil {
			return err
		}
		c.Notes = rec.BlockNotes[c.BlockID]
		rec.TimeBlockCompletions = append(rec.TimeBlockCompletions, c)
	}
	return rows.Err()
}

func (d *days) loadTodos(ctx context.Context, rec *model.DayRecord) error {
	rows, err := d.db.QueryContext(ctx, `
        SELECT item_id, text, completed, completed_at, due_date
        FROM day_todos WHERE user_id=? AND date=? ORDER BY creation_time, item_id
    `, rec.UserID, rec.Date)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var t model.TodoItem
		var completed int
		if err := rows.Scan(&t.ItemID, &t.Text, &completed, &t.CompletedAt, &t.DueDate); err != nil {
			return err
		}
		t.Completed = completed == 1
		rec.TodoList = append(rec.TodoList, t)
	}
	return rows.Err()
}

func (d *days) Ensure(ctx context.Context, rec *model.DayRecord) (*model.DayRecord, error) {
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO day_records (user_id, date, wake_time, user_timezone, creation_time)
        VALUES (?,?,?,?,?)
        ON CONFLICT(user_id, date) DO NOTHING
    `, rec.UserID, rec.Date, rec.WakeTime, rec.UserTimezone, rec.CreationTime.UTC())
	if err != nil {
		return nil, err
	}
	return d.Get(ctx, rec.UserID, rec.Date)
}

func (d *days) SetWakeTime(ctx context.Context, userID, date, wakeTime string) error {
	res, err := d.db.ExecContext(ctx, `
        UPDATE day_records SET wake_time=? WHERE user_id=? AND date=?
    `, wakeTime, userID, date)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (d *days) CompleteChecklistItem(ctx context.Context, userID, date, checklistID string, item model.ItemCompletion) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
        INSERT INTO day_checklist_items (user_id, date, checklist_id, item_id, item_text, completed_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT(user_id, date, checklist_id, item_id) DO NOTHING
    `, userID, date, checklistID, item.ItemID, item.Text, item.CompletedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Already completed: idempotent no-op, original timestamp kept.
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO day_checklist_completions (user_id, date, checklist_id, completed_at)
        VALUES (?,?,?,?)
        ON CONFLICT(user_id, date, checklist_id) DO UPDATE SET completed_at=excluded.completed_at
    `, userID, date, checklistID, item.CompletedAt); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (d *days) UncompleteChecklistItem(ctx context.Context, userID, date, checklistID, itemID string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
        DELETE FROM day_checklist_items
        WHERE user_id=? AND date=? AND checklist_id=? AND item_id=?
    `, userID, date, checklistID, itemID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *days) SetChecklistNotes(ctx context.Context, userID, date, checklistID, notes string) error {
	res, err := d.db.ExecContext(ctx, `
        UPDATE day_checklist_completions SET notes=?
        WHERE user_id=? AND date=? AND checklist_id=?
    `, notes, userID, date, checklistID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (d *days) CompleteTimeBlock(ctx context.Context, userID, date string, c model.TimeBlockCompletion) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
        INSERT INTO day_block_completions (user_id, date, block_id, completed_at, block_index, tz_offset_minutes, local_time)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT(user_id, date, block_id) DO NOTHING
    `, userID, date, c.BlockID, c.CompletedAt, c.BlockIndex, c.TimezoneOffsetMinutes, c.LocalTimeUsed)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *days) UncompleteTimeBlock(ctx context.Context, userID, date, blockID string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
        DELETE FROM day_block_completions WHERE user_id=? AND date=? AND block_id=?
    `, userID, date, blockID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *days) AddBlockNote(ctx context.Context, userID, date, blockID, note string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO day_block_notes (user_id, date, block_id, note, creation_time)
        VALUES (?,?,?,?,?)
    `, userID, date, blockID, note, at.UTC())
	return err
}

func (d *days) AppendTodo(ctx context.Context, userID, date string, item model.TodoItem, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO day_todos (user_id, date, item_id, text, completed, completed_at, due_date, creation_time)
        VALUES (?,?,?,?,?,?,?,?)
    `, userID, date, item.ItemID, item.Text, boolToInt(item.Completed), item.CompletedAt, item.DueDate, at.UTC())
	return err
}

func (d *days) SetTodoCompleted(ctx context.Context, userID, date, itemID string, completed bool, at *time.Time) error {
	res, err := d.db.ExecContext(ctx, `
        UPDATE day_todos SET completed=?, completed_at=?
        WHERE user_id=? AND date=? AND item_id=?
    `, boolToInt(completed), at, userID, date, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
