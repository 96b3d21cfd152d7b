package store

import (
	"context"
	"time"

	"github.com/amptracker/amp-tracker/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres,
// sqlite). Day mutations are field-scoped and atomic: insert-if-absent and
// delete-if-present keyed by id, so concurrent completions of distinct
// items on the same day never clobber each other.
type Store interface {
	Users() Users
	Templates() Templates
	Days() Days
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	Delete(ctx context.Context, userID string) error
}

type Templates interface {
	// PutVersion stores a new template version for its role, assigning the
	// next version number. When ts.IsActive is set every other version of
	// the role is deactivated in the same transaction.
	PutVersion(ctx context.Context, ts *model.TemplateSet) (*model.TemplateSet, error)
	GetActive(ctx context.Context, role string) (*model.TemplateSet, error)
	GetVersion(ctx context.Context, role string, version int) (*model.TemplateSet, error)
	ListVersions(ctx context.Context, role string) ([]*model.TemplateSet, error)
	// Activate marks one version active and every other version of the
	// role inactive.
	Activate(ctx context.Context, role string, version int) error
}

type Days interface {
	// Get assembles the full DayRecord for (userID, date).
	// Returns model.ErrNotFound when no record exists.
	Get(ctx context.Context, userID, date string) (*model.DayRecord, error)

	// Ensure creates the day record if absent and returns the stored
	// record either way. rec.CreationTime is the caller-supplied instant
	// used when the record is created. Safe under concurrent callers.
	Ensure(ctx context.Context, rec *model.DayRecord) (*model.DayRecord, error)

	SetWakeTime(ctx context.Context, userID, date, wakeTime string) error

	// CompleteChecklistItem inserts the item completion if it is not
	// already present. The checklist-level completedAt is bumped only when
	// the insert happens. Reports whether the item was newly inserted.
	CompleteChecklistItem(ctx context.Context, userID, date, checklistID string, item model.ItemCompletion) (bool, error)

	// UncompleteChecklistItem removes the item completion if present.
	// Reports whether anything was removed; absence is not an error.
	UncompleteChecklistItem(ctx context.Context, userID, date, checklistID, itemID string) (bool, error)

	// SetChecklistNotes overwrites the notes on an existing checklist
	// completion entry. Returns model.ErrNotFound when the entry is absent.
	SetChecklistNotes(ctx context.Context, userID, date, checklistID, notes string) error

	// CompleteTimeBlock inserts the block completion if absent.
	CompleteTimeBlock(ctx context.Context, userID, date string, c model.TimeBlockCompletion) (bool, error)

	// UncompleteTimeBlock removes the block completion if present.
	UncompleteTimeBlock(ctx context.Context, userID, date, blockID string) (bool, error)

	// AddBlockNote appends a note to the block's note list at the given
	// instant. The block does not need a completion entry.
	AddBlockNote(ctx context.Context, userID, date, blockID, note string, at time.Time) error

	// AppendTodo appends a todo item to the day's list at the given
	// instant, which orders the list on read.
	AppendTodo(ctx context.Context, userID, date string, item model.TodoItem, at time.Time) error

	// SetTodoCompleted flips a todo's completion state; at carries the
	// server-assigned completion instant (nil when un-completing).
	// Returns model.ErrNotFound for an unknown itemID.
	SetTodoCompleted(ctx context.Context, userID, date, itemID string, completed bool, at *time.Time) error
}
