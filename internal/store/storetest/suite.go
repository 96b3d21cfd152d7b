package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique test identifiers
	userID := "u-" + uuid.New().String()
	email := userID + "@example.test"
	date := "2025-09-17"

	// Users
	u := &model.User{UserID: userID, Email: email, TimeZone: "America/New_York", Role: "public"}
	if _, err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if got, err := s.Users().Get(ctx, userID); err != nil || got == nil || got.TimeZone != "America/New_York" {
		t.Fatalf("GetUser: got=%v err=%v", got, err)
	}
	if _, err := s.Users().Get(ctx, "u-missing-"+uuid.New().String()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUser missing: err=%v, want ErrNotFound", err)
	}

	// Templates: versioning and single-active invariant
	role := "role-" + uuid.New().String()
	v1, err := s.Templates().PutVersion(ctx, &model.TemplateSet{
		Role:     role,
		IsActive: true,
		Checklists: []model.ChecklistDefinition{{
			ChecklistID: "mc-master-001",
			Title:       "Master Checklist",
			Items: []model.ChecklistItemDefinition{
				{ItemID: "mc-morning-001", Text: "Wake up on time", Order: 0},
				{ItemID: "mc-morning-002", Text: "Make bed", Order: 1},
			},
			ItemsOrder: []string{"mc-morning-001", "mc-morning-002"},
		}},
	})
	if err != nil {
		t.Fatalf("PutVersion v1: %v", err)
	}
	if v1.Version != 1 {
		t.Fatalf("PutVersion v1: version=%d", v1.Version)
	}
	v2, err := s.Templates().PutVersion(ctx, &model.TemplateSet{Role: role, IsActive: true})
	if err != nil {
		t.Fatalf("PutVersion v2: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("PutVersion v2: version=%d", v2.Version)
	}
	if act, err := s.Templates().GetActive(ctx, role); err != nil || act.Version != 2 {
		t.Fatalf("GetActive after v2: got=%+v err=%v", act, err)
	}
	if err := s.Templates().Activate(ctx, role, 1); err != nil {
		t.Fatalf("Activate v1: %v", err)
	}
	act, err := s.Templates().GetActive(ctx, role)
	if err != nil || act.Version != 1 {
		t.Fatalf("GetActive after rollback: got=%+v err=%v", act, err)
	}
	if len(act.Checklists) != 1 || len(act.Checklists[0].Items) != 2 {
		t.Fatalf("template payload round trip: %+v", act.Checklists)
	}
	if lst, err := s.Templates().ListVersions(ctx, role); err != nil || len(lst) != 2 {
		t.Fatalf("ListVersions: n=%d err=%v", len(lst), err)
	}
	if err := s.Templates().Activate(ctx, role, 99); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Activate unknown version: err=%v, want ErrNotFound", err)
	}

	// Day records: missing, then lazily created
	if _, err := s.Days().Get(ctx, userID, date); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get missing day: err=%v, want ErrNotFound", err)
	}
	createdAt := time.Date(2025, 9, 17, 11, 0, 0, 0, time.UTC)
	seed := &model.DayRecord{UserID: userID, Date: date, UserTimezone: "America/New_York", CreationTime: createdAt}
	rec, err := s.Days().Ensure(ctx, seed)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if rec.UserTimezone != "America/New_York" {
		t.Fatalf("Ensure: timezone=%q", rec.UserTimezone)
	}
	if !rec.CreationTime.Equal(createdAt) {
		t.Fatalf("Ensure: creation time=%v, want %v", rec.CreationTime, createdAt)
	}
	// Ensure is idempotent and keeps the stored record, including the
	// original creation instant.
	seed.CreationTime = createdAt.Add(time.Hour)
	rec, err = s.Days().Ensure(ctx, seed)
	if err != nil {
		t.Fatalf("Ensure repeat: %v", err)
	}
	if !rec.CreationTime.Equal(createdAt) {
		t.Fatalf("Ensure repeat changed creation time: %v", rec.CreationTime)
	}

	// Wake time
	if err := s.Days().SetWakeTime(ctx, userID, date, "04:30"); err != nil {
		t.Fatalf("SetWakeTime: %v", err)
	}
	if rec, err = s.Days().Get(ctx, userID, date); err != nil || rec.WakeTime == nil || *rec.WakeTime != "04:30" {
		t.Fatalf("wake time round trip: rec=%+v err=%v", rec, err)
	}
	if err := s.Days().SetWakeTime(ctx, userID, "2025-01-01", "04:30"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetWakeTime missing day: err=%v, want ErrNotFound", err)
	}

	// Checklist item completion is idempotent and keeps the first timestamp.
	first := time.Date(2025, 9, 17, 12, 15, 0, 0, time.UTC)
	inserted, err := s.Days().CompleteChecklistItem(ctx, userID, date, "mc-master-001",
		model.ItemCompletion{ItemID: "mc-morning-001", Text: "Wake up on time", CompletedAt: first})
	if err != nil || !inserted {
		t.Fatalf("CompleteChecklistItem: inserted=%v err=%v", inserted, err)
	}
	inserted, err = s.Days().CompleteChecklistItem(ctx, userID, date, "mc-master-001",
		model.ItemCompletion{ItemID: "mc-morning-001", Text: "Wake up on time", CompletedAt: first.Add(time.Hour)})
	if err != nil || inserted {
		t.Fatalf("CompleteChecklistItem repeat: inserted=%v err=%v", inserted, err)
	}
	rec, err = s.Days().Get(ctx, userID, date)
	if err != nil {
		t.Fatalf("Get after completion: %v", err)
	}
	cc := rec.ChecklistCompletions["mc-master-001"]
	if cc == nil || len(cc.Items) != 1 {
		t.Fatalf("checklist completion: %+v", cc)
	}
	if !cc.Items[0].CompletedAt.Equal(first) {
		t.Fatalf("repeat completion changed timestamp: %v", cc.Items[0].CompletedAt)
	}

	// Checklist notes require the completion entry.
	if err := s.Days().SetChecklistNotes(ctx, userID, date, "mc-master-001", "solid morning"); err != nil {
		t.Fatalf("SetChecklistNotes: %v", err)
	}
	if err := s.Days().SetChecklistNotes(ctx, userID, date, "hb-habits-001", "x"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetChecklistNotes without completion: err=%v, want ErrNotFound", err)
	}

	// Uncomplete removes the entry; repeating is a no-op.
	removed, err := s.Days().UncompleteChecklistItem(ctx, userID, date, "mc-master-001", "mc-morning-001")
	if err != nil || !removed {
		t.Fatalf("UncompleteChecklistItem: removed=%v err=%v", removed, err)
	}
	removed, err = s.Days().UncompleteChecklistItem(ctx, userID, date, "mc-master-001", "mc-morning-001")
	if err != nil || removed {
		t.Fatalf("UncompleteChecklistItem repeat: removed=%v err=%v", removed, err)
	}

	// Time block completion with audit fields.
	blockDone := model.TimeBlockCompletion{
		BlockID:               "tb-08h-001",
		CompletedAt:           first,
		BlockIndex:            4,
		TimezoneOffsetMinutes: -240,
		LocalTimeUsed:         "08:15",
	}
	if ins, err := s.Days().CompleteTimeBlock(ctx, userID, date, blockDone); err != nil || !ins {
		t.Fatalf("CompleteTimeBlock: inserted=%v err=%v", ins, err)
	}
	if ins, err := s.Days().CompleteTimeBlock(ctx, userID, date, blockDone); err != nil || ins {
		t.Fatalf("CompleteTimeBlock repeat: inserted=%v err=%v", ins, err)
	}
	if err := s.Days().AddBlockNote(ctx, userID, date, "tb-08h-001", "deep work", first); err != nil {
		t.Fatalf("AddBlockNote: %v", err)
	}
	rec, err = s.Days().Get(ctx, userID, date)
	if err != nil || len(rec.TimeBlockCompletions) != 1 {
		t.Fatalf("block completion read: rec=%+v err=%v", rec, err)
	}
	got := rec.TimeBlockCompletions[0]
	if got.BlockIndex != 4 || got.TimezoneOffsetMinutes != -240 || got.LocalTimeUsed != "08:15" {
		t.Fatalf("audit fields: %+v", got)
	}
	if len(got.Notes) != 1 || got.Notes[0] != "deep work" {
		t.Fatalf("block notes: %+v", got.Notes)
	}
	if rem, err := s.Days().UncompleteTimeBlock(ctx, userID, date, "tb-08h-001"); err != nil || !rem {
		t.Fatalf("UncompleteTimeBlock: removed=%v err=%v", rem, err)
	}

	// Todos keep insertion order and support completion toggles.
	todoA := model.TodoItem{ItemID: "todo-1758100500000-1-1", Text: "buy groceries"}
	todoB := model.TodoItem{ItemID: "todo-1758100500000-2-2", Text: "call dentist"}
	if err := s.Days().AppendTodo(ctx, userID, date, todoA, first); err != nil {
		t.Fatalf("AppendTodo A: %v", err)
	}
	if err := s.Days().AppendTodo(ctx, userID, date, todoB, first.Add(time.Minute)); err != nil {
		t.Fatalf("AppendTodo B: %v", err)
	}
	doneAt := first.Add(2 * time.Hour)
	if err := s.Days().SetTodoCompleted(ctx, userID, date, todoA.ItemID, true, &doneAt); err != nil {
		t.Fatalf("SetTodoCompleted: %v", err)
	}
	if err := s.Days().SetTodoCompleted(ctx, userID, date, "todo-0000000000000-9-9", true, &doneAt); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetTodoCompleted unknown: err=%v, want ErrNotFound", err)
	}
	rec, err = s.Days().Get(ctx, userID, date)
	if err != nil || len(rec.TodoList) != 2 {
		t.Fatalf("todo read: rec=%+v err=%v", rec, err)
	}
	if rec.TodoList[0].ItemID != todoA.ItemID || !rec.TodoList[0].Completed {
		t.Fatalf("todo order/state: %+v", rec.TodoList)
	}
	if rec.TodoList[1].Completed {
		t.Fatalf("todo B should not be completed: %+v", rec.TodoList[1])
	}

	// Users delete
	if err := s.Users().Delete(ctx, userID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
}
