package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
)

// --- Fakes ---

type fakeStore struct {
	users     map[string]*model.User
	templates map[string]*model.TemplateSet // keyed by role, active only
	days      map[string]*model.DayRecord   // keyed by userID|date

	failDayReads bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]*model.User{},
		templates: map[string]*model.TemplateSet{},
		days:      map[string]*model.DayRecord{},
	}
}

func (f *fakeStore) Users() store.Users         { return (*fakeUsers)(f) }
func (f *fakeStore) Templates() store.Templates { return (*fakeTemplates)(f) }
func (f *fakeStore) Days() store.Days           { return (*fakeDays)(f) }

type fakeUsers fakeStore

func (f *fakeUsers) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if _, ok := f.users[u.UserID]; ok {
		return nil, model.ErrConflict
	}
	f.users[u.UserID] = u
	return u, nil
}

func (f *fakeUsers) Get(ctx context.Context, userID string) (*model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Delete(ctx context.Context, userID string) error {
	delete(f.users, userID)
	return nil
}

type fakeTemplates fakeStore

func (f *fakeTemplates) PutVersion(ctx context.Context, ts *model.TemplateSet) (*model.TemplateSet, error) {
	cp := *ts
	cp.Version = 1
	if prev, ok := f.templates[ts.Role]; ok {
		cp.Version = prev.Version + 1
	}
	if cp.IsActive || f.templates[ts.Role] == nil {
		cp.IsActive = true
		f.templates[ts.Role] = &cp
	}
	return &cp, nil
}

func (f *fakeTemplates) GetActive(ctx context.Context, role string) (*model.TemplateSet, error) {
	ts, ok := f.templates[role]
	if !ok {
		return nil, model.ErrNotFound
	}
	return ts, nil
}

func (f *fakeTemplates) GetVersion(ctx context.Context, role string, version int) (*model.TemplateSet, error) {
	ts, ok := f.templates[role]
	if !ok || ts.Version != version {
		return nil, model.ErrNotFound
	}
	return ts, nil
}

func (f *fakeTemplates) ListVersions(ctx context.Context, role string) ([]*model.TemplateSet, error) {
	if ts, ok := f.templates[role]; ok {
		return []*model.TemplateSet{ts}, nil
	}
	return nil, nil
}

func (f *fakeTemplates) Activate(ctx context.Context, role string, version int) error {
	ts, ok := f.templates[role]
	if !ok || ts.Version != version {
		return model.ErrNotFound
	}
	ts.IsActive = true
	return nil
}

type fakeDays fakeStore

func dayKey(userID, date string) string { return userID + "|" + date }

func (f *fakeDays) Get(ctx context.Context, userID, date string) (*model.DayRecord, error) {
	if f.failDayReads {
		return nil, errors.New("read failure injected")
	}
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec, nil
}

func (f *fakeDays) Ensure(ctx context.Context, rec *model.DayRecord) (*model.DayRecord, error) {
	k := dayKey(rec.UserID, rec.Date)
	if existing, ok := f.days[k]; ok {
		return existing, nil
	}
	cp := *rec
	cp.ChecklistCompletions = map[string]*model.ChecklistCompletion{}
	cp.BlockNotes = map[string][]string{}
	f.days[k] = &cp
	return &cp, nil
}

func (f *fakeDays) SetWakeTime(ctx context.Context, userID, date, wakeTime string) error {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return model.ErrNotFound
	}
	rec.WakeTime = &wakeTime
	return nil
}

func (f *fakeDays) CompleteChecklistItem(ctx context.Context, userID, date, checklistID string, item model.ItemCompletion) (bool, error) {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return false, model.ErrNotFound
	}
	cc := rec.ChecklistCompletions[checklistID]
	if cc == nil {
		cc = &model.ChecklistCompletion{ChecklistID: checklistID}
		rec.ChecklistCompletions[checklistID] = cc
	}
	for _, it := range cc.Items {
		if it.ItemID == item.ItemID {
			return false, nil
		}
	}
	cc.Items = append(cc.Items, item)
	at := item.CompletedAt
	cc.CompletedAt = &at
	return true, nil
}

func (f *fakeDays) UncompleteChecklistItem(ctx context.Context, userID, date, checklistID, itemID string) (bool, error) {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return false, nil
	}
	cc := rec.ChecklistCompletions[checklistID]
	if cc == nil {
		return false, nil
	}
	for i, it := range cc.Items {
		if it.ItemID == itemID {
			cc.Items = append(cc.Items[:i], cc.Items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDays) SetChecklistNotes(ctx context.Context, userID, date, checklistID, notes string) error {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return model.ErrNotFound
	}
	cc := rec.ChecklistCompletions[checklistID]
	if cc == nil {
		return model.ErrNotFound
	}
	cc.Notes = notes
	return nil
}

func (f *fakeDays) CompleteTimeBlock(ctx context.Context, userID, date string, c model.TimeBlockCompletion) (bool, error) {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return false, model.ErrNotFound
	}
	for _, existing := range rec.TimeBlockCompletions {
		if existing.BlockID == c.BlockID {
			return false, nil
		}
	}
	rec.TimeBlockCompletions = append(rec.TimeBlockCompletions, c)
	return true, nil
}

func (f *fakeDays) UncompleteTimeBlock(ctx context.Context, userID, date, blockID string) (bool, error) {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return false, nil
	}
	for i, c := range rec.TimeBlockCompletions {
		if c.BlockID == blockID {
			rec.TimeBlockCompletions = append(rec.TimeBlockCompletions[:i], rec.TimeBlockCompletions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDays) AddBlockNote(ctx context.Context, userID, date, blockID, note string, at time.Time) error {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return model.ErrNotFound
	}
	rec.BlockNotes[blockID] = append(rec.BlockNotes[blockID], note)
	return nil
}

func (f *fakeDays) AppendTodo(ctx context.Context, userID, date string, item model.TodoItem, at time.Time) error {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return model.ErrNotFound
	}
	rec.TodoList = append(rec.TodoList, item)
	return nil
}

func (f *fakeDays) SetTodoCompleted(ctx context.Context, userID, date, itemID string, completed bool, at *time.Time) error {
	rec, ok := f.days[dayKey(userID, date)]
	if !ok {
		return model.ErrNotFound
	}
	for i := range rec.TodoList {
		if rec.TodoList[i].ItemID == itemID {
			rec.TodoList[i].Completed = completed
			rec.TodoList[i].CompletedAt = at
			return nil
		}
	}
	return model.ErrNotFound
}

// --- Helpers ---

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func newTestDayService(fs *fakeStore, now time.Time) *DayService {
	return NewDayService(fs, NewTemplateService(fs), fixedClock(now), zerolog.Nop())
}

func seedUser(fs *fakeStore, id, tz, role string) {
	fs.users[id] = &model.User{UserID: id, Email: id + "@example.com", TimeZone: tz, Role: role}
}

const testDate = "2025-06-10"

// --- Tests ---

func TestCompleteChecklistItemIdempotent(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	first := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestDayService(fs, first)

	if err := svc.CompleteChecklistItem(context.Background(), "u1", "mc-checklist-001", "mc-item-001", "Stretch", testDate); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Second completion an hour later must not duplicate or re-stamp.
	svc.clock = fixedClock(first.Add(time.Hour))
	if err := svc.CompleteChecklistItem(context.Background(), "u1", "mc-checklist-001", "mc-item-001", "Stretch", testDate); err != nil {
		t.Fatalf("repeat complete: %v", err)
	}

	rec := fs.days[dayKey("u1", testDate)]
	if !rec.CreationTime.Equal(first) {
		t.Fatalf("day creation time not taken from the clock: got %v want %v", rec.CreationTime, first)
	}
	cc := rec.ChecklistCompletions["mc-checklist-001"]
	if cc == nil || len(cc.Items) != 1 {
		t.Fatalf("expected exactly one item completion, got %+v", cc)
	}
	if !cc.Items[0].CompletedAt.Equal(first) {
		t.Fatalf("original timestamp lost: got %v want %v", cc.Items[0].CompletedAt, first)
	}
}

func TestUncompleteChecklistItemMissingDayIsNoop(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Now())

	if err := svc.UncompleteChecklistItem(context.Background(), "u1", "mc-checklist-001", "mc-item-001", testDate); err != nil {
		t.Fatalf("uncomplete on missing day should be a no-op, got %v", err)
	}
	if len(fs.days) != 0 {
		t.Fatalf("uncomplete must not create a day record")
	}
}

func TestCompleteChecklistItemValidation(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Now())

	cases := []struct {
		name                        string
		checklistID, itemID, date   string
	}{
		{"bad date", "mc-checklist-001", "mc-item-001", "June 10"},
		{"empty checklist id", "", "mc-item-001", testDate},
		{"empty item id", "mc-checklist-001", "", testDate},
		{"oversized id", strings.Repeat("x", 101), "mc-item-001", testDate},
	}
	for _, tc := range cases {
		err := svc.CompleteChecklistItem(context.Background(), "u1", tc.checklistID, tc.itemID, "", tc.date)
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestCompleteChecklistItemMissingTimezone(t *testing.T) {
	fs := newFakeStore()
	fs.users["u1"] = &model.User{UserID: "u1", Email: "u1@example.com", Role: "mc"}
	svc := newTestDayService(fs, time.Now())

	err := svc.CompleteChecklistItem(context.Background(), "u1", "mc-checklist-001", "mc-item-001", "", testDate)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for user without timezone, got %v", err)
	}
}

func TestToggleTimeBlockRecordsAuditFields(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "America/New_York", "mc")
	// 12:15 UTC is 08:15 in New York in June (EDT, UTC-4) -> slot 4.
	now := time.Date(2025, 6, 10, 12, 15, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	if err := svc.ToggleTimeBlock(context.Background(), "u1", testDate, "block-7"); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	rec := fs.days[dayKey("u1", testDate)]
	if len(rec.TimeBlockCompletions) != 1 {
		t.Fatalf("expected one block completion, got %d", len(rec.TimeBlockCompletions))
	}
	c := rec.TimeBlockCompletions[0]
	if c.BlockIndex != 4 {
		t.Fatalf("blockIndex = %d, want 4", c.BlockIndex)
	}
	if c.TimezoneOffsetMinutes != -240 {
		t.Fatalf("timezoneOffsetMinutes = %d, want -240", c.TimezoneOffsetMinutes)
	}
	if c.LocalTimeUsed != "08:15" {
		t.Fatalf("localTimeUsed = %q, want 08:15", c.LocalTimeUsed)
	}

	// Second toggle removes it.
	if err := svc.ToggleTimeBlock(context.Background(), "u1", testDate, "block-7"); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if len(rec.TimeBlockCompletions) != 0 {
		t.Fatalf("expected completion removed, got %+v", rec.TimeBlockCompletions)
	}
}

func TestToggleTimeBlockUsesWakeRule(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	now := time.Date(2025, 6, 10, 4, 45, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	if err := svc.SetWakeTime(context.Background(), "u1", testDate, "03:30"); err != nil {
		t.Fatalf("set wake time: %v", err)
	}
	if err := svc.ToggleTimeBlock(context.Background(), "u1", testDate, "block-1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	c := fs.days[dayKey("u1", testDate)].TimeBlockCompletions[0]
	if c.BlockIndex != 0 {
		t.Fatalf("04:45 after an 03:30 wake should map to slot 0, got %d", c.BlockIndex)
	}
}

func TestToggleTimeBlockRejectsMalformedID(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Now())

	err := svc.ToggleTimeBlock(context.Background(), "u1", testDate, "not a block")
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddBlockNoteDropsEmptyAndCaps(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Now())

	if err := svc.AddBlockNote(context.Background(), "u1", testDate, "block-3", "   "); err != nil {
		t.Fatalf("whitespace note: %v", err)
	}
	if len(fs.days) != 0 {
		t.Fatalf("empty note must not create a day record")
	}

	long := strings.Repeat("n", 300)
	if err := svc.AddBlockNote(context.Background(), "u1", testDate, "block-3", long); err != nil {
		t.Fatalf("add note: %v", err)
	}
	notes := fs.days[dayKey("u1", testDate)].BlockNotes["block-3"]
	if len(notes) != 1 || len(notes[0]) != maxBlockNote {
		t.Fatalf("expected one note capped at %d chars, got %d notes len %d", maxBlockNote, len(notes), len(notes[0]))
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	// Each arrow is 3 bytes, so a 200-byte cap lands mid-rune and must
	// back up to 198 rather than emit a broken sequence.
	long := strings.Repeat("→", 100)
	got := sanitize(long, maxBlockNote)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got) != 198 {
		t.Fatalf("len = %d, want 198", len(got))
	}

	// Exact-fit and under-cap strings pass through untouched.
	if got := sanitize("héllo", 10); got != "héllo" {
		t.Fatalf("short string altered: %q", got)
	}
	if got := sanitize("ab", 2); got != "ab" {
		t.Fatalf("exact fit altered: %q", got)
	}
}

func TestAddTodoItem(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	item, err := svc.AddTodoItem(context.Background(), "u1", testDate, "  buy milk  ")
	if err != nil {
		t.Fatalf("add todo: %v", err)
	}
	if item.Text != "buy milk" {
		t.Fatalf("todo text not trimmed: %q", item.Text)
	}
	if !strings.HasPrefix(item.ItemID, "todo-") {
		t.Fatalf("unexpected todo id %q", item.ItemID)
	}

	if _, err := svc.AddTodoItem(context.Background(), "u1", testDate, "   "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("blank todo should be rejected, got %v", err)
	}

	second, err := svc.AddTodoItem(context.Background(), "u1", testDate, "walk dog")
	if err != nil {
		t.Fatalf("second todo: %v", err)
	}
	if second.ItemID == item.ItemID {
		t.Fatalf("todo ids must be unique within the day")
	}
}

func TestSetTodoCompleted(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	item, err := svc.AddTodoItem(context.Background(), "u1", testDate, "buy milk")
	if err != nil {
		t.Fatalf("add todo: %v", err)
	}
	if err := svc.SetTodoCompleted(context.Background(), "u1", testDate, item.ItemID, true); err != nil {
		t.Fatalf("complete todo: %v", err)
	}
	got := fs.days[dayKey("u1", testDate)].TodoList[0]
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Fatalf("todo not stamped: %+v", got)
	}

	if err := svc.SetTodoCompleted(context.Background(), "u1", testDate, item.ItemID, false); err != nil {
		t.Fatalf("uncomplete todo: %v", err)
	}
	got = fs.days[dayKey("u1", testDate)].TodoList[0]
	if got.Completed || got.CompletedAt != nil {
		t.Fatalf("todo completion not cleared: %+v", got)
	}

	if err := svc.SetTodoCompleted(context.Background(), "u1", testDate, "todo-unknown", true); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown todo should be ErrNotFound, got %v", err)
	}
}

func TestAddChecklistNotesRequiresCompletionEntry(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	err := svc.AddChecklistNotes(context.Background(), "u1", "mc-checklist-001", "great day", testDate)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("notes without a day record should be ErrNotFound, got %v", err)
	}

	if err := svc.CompleteChecklistItem(context.Background(), "u1", "mc-checklist-001", "mc-item-001", "", testDate); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.AddChecklistNotes(context.Background(), "u1", "mc-checklist-001", "great day", testDate); err != nil {
		t.Fatalf("notes after completion: %v", err)
	}
	cc := fs.days[dayKey("u1", testDate)].ChecklistCompletions["mc-checklist-001"]
	if cc.Notes != "great day" {
		t.Fatalf("notes = %q, want %q", cc.Notes, "great day")
	}
}

func TestSetWakeTimeValidation(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Now())

	for _, bad := range []string{"7am", "25:00", "07:61", ""} {
		if err := svc.SetWakeTime(context.Background(), "u1", testDate, bad); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("wake time %q should be rejected, got %v", bad, err)
		}
	}
	if err := svc.SetWakeTime(context.Background(), "u1", testDate, "06:30"); err != nil {
		t.Fatalf("valid wake time: %v", err)
	}
}

func TestHydrateDayMergesTemplateAndRecord(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	fs.templates["mc"] = &model.TemplateSet{
		Role: "mc", Version: 1, IsActive: true,
		TimeBlocks: []model.TimeBlockDefinition{
			{BlockID: "tb-04h-001", Time: "04:00", Label: "4:00 a.m.", Order: 0},
			{BlockID: "tb-05h-001", Time: "05:00", Label: "5:00 a.m.", Order: 1},
		},
		Checklists: []model.ChecklistDefinition{{
			ChecklistID: "mc-morning-001",
			Title:       "Morning",
			Items: []model.ChecklistItemDefinition{
				{ItemID: "mc-item-001", Text: "Stretch", Order: 0},
				{ItemID: "mc-item-002", Text: "Hydrate", Order: 1},
			},
			ItemsOrder: []string{"mc-item-001", "mc-item-002"},
		}},
	}
	now := time.Date(2025, 6, 10, 4, 30, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	if err := svc.CompleteChecklistItem(context.Background(), "u1", "mc-morning-001", "mc-item-002", "Hydrate", testDate); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.ToggleTimeBlock(context.Background(), "u1", testDate, "tb-04h-001"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	view, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if view.Role != "mc" {
		t.Fatalf("role = %q, want mc", view.Role)
	}
	if len(view.TimeBlocks) != 2 || !view.TimeBlocks[0].Complete || view.TimeBlocks[1].Complete {
		t.Fatalf("unexpected block merge: %+v", view.TimeBlocks)
	}
	if len(view.Checklists) != 1 {
		t.Fatalf("expected one checklist, got %d", len(view.Checklists))
	}
	items := view.Checklists[0].Items
	if len(items) != 2 || items[0].Completed || !items[1].Completed {
		t.Fatalf("unexpected item merge: %+v", items)
	}
}

func TestHydrateDayDegradesGracefully(t *testing.T) {
	fs := newFakeStore()
	// Unknown user: fallback role, default blocks, empty day.
	svc := newTestDayService(fs, time.Now())

	view, err := svc.HydrateDay(context.Background(), "ghost", testDate)
	if err != nil {
		t.Fatalf("hydrate of unknown user should degrade, got %v", err)
	}
	if view.Role != fallbackRole {
		t.Fatalf("role = %q, want %q", view.Role, fallbackRole)
	}
	if len(view.TimeBlocks) != 18 {
		t.Fatalf("expected 18 default blocks, got %d", len(view.TimeBlocks))
	}
	if view.TimeBlocks[0].Label != "4:00 a.m." || view.TimeBlocks[17].Label != "9:00 p.m." {
		t.Fatalf("unexpected default labels: %q .. %q", view.TimeBlocks[0].Label, view.TimeBlocks[17].Label)
	}
	if len(view.Checklists) != 0 || len(view.TodoList) != 0 {
		t.Fatalf("expected empty checklists and todos, got %+v", view)
	}
}

func TestHydrateDayServesEmptyOnReadFailure(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	fs.failDayReads = true
	svc := newTestDayService(fs, time.Now())

	view, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate should degrade on read failure, got %v", err)
	}
	if len(view.TimeBlocks) != 18 || len(view.TodoList) != 0 {
		t.Fatalf("expected default empty view, got %+v", view)
	}
}

func TestHydrateDayDoesNotCacheDegradedView(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	fs.templates["mc"] = &model.TemplateSet{Role: "mc", Version: 1, IsActive: true}
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	if _, err := svc.AddTodoItem(context.Background(), "u1", testDate, "buy milk"); err != nil {
		t.Fatalf("add todo: %v", err)
	}

	fs.failDayReads = true
	view, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate during outage: %v", err)
	}
	if len(view.TodoList) != 0 {
		t.Fatalf("outage view should be empty, got %+v", view.TodoList)
	}

	// Once the store recovers the next hydrate must re-read, not replay
	// the empty fallback from cache.
	fs.failDayReads = false
	view, err = svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate after recovery: %v", err)
	}
	if len(view.TodoList) != 1 || view.TodoList[0].Text != "buy milk" {
		t.Fatalf("recovered hydrate lost the todo: %+v", view.TodoList)
	}
}

func TestHydrateDayRetriesTemplateAfterFailure(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	svc := newTestDayService(fs, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	// No template installed yet: hydrate falls back to default blocks.
	view, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate without template: %v", err)
	}
	if len(view.Checklists) != 0 {
		t.Fatalf("expected no checklists before install, got %+v", view.Checklists)
	}

	fs.templates["mc"] = &model.TemplateSet{
		Role: "mc", Version: 1, IsActive: true,
		Checklists: []model.ChecklistDefinition{{
			ChecklistID: "mc-morning-001",
			Title:       "Morning",
			Items:       []model.ChecklistItemDefinition{{ItemID: "mc-item-001", Text: "Stretch", Order: 0}},
			ItemsOrder:  []string{"mc-item-001"},
		}},
	}
	view, err = svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate after install: %v", err)
	}
	if len(view.Checklists) != 1 {
		t.Fatalf("template install not picked up, got %+v", view.Checklists)
	}
}

func TestHydrateDayCacheInvalidation(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	fs.templates["mc"] = &model.TemplateSet{Role: "mc", Version: 1, IsActive: true}
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestDayService(fs, now)

	v1, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	v2, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate again: %v", err)
	}
	if v1 != v2 {
		t.Fatalf("second hydrate should be served from cache")
	}

	if _, err := svc.AddTodoItem(context.Background(), "u1", testDate, "buy milk"); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	v3, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate after write: %v", err)
	}
	if v3 == v2 {
		t.Fatalf("write must invalidate the cached view")
	}
	if len(v3.TodoList) != 1 {
		t.Fatalf("fresh view missing the new todo: %+v", v3.TodoList)
	}
}

func TestHydrateDayNeverMutatesTemplate(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "u1", "UTC", "mc")
	tpl := &model.TemplateSet{
		Role: "mc", Version: 1, IsActive: true,
		TimeBlocks: []model.TimeBlockDefinition{
			{BlockID: "tb-04h-001", Time: "04:00", Label: "4:00 a.m.", Order: 1},
			{BlockID: "tb-05h-001", Time: "05:00", Label: "5:00 a.m.", Order: 0},
		},
	}
	fs.templates["mc"] = tpl
	svc := newTestDayService(fs, time.Now())

	view, err := svc.HydrateDay(context.Background(), "u1", testDate)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if view.TimeBlocks[0].BlockID != "tb-05h-001" {
		t.Fatalf("blocks not sorted by order: %+v", view.TimeBlocks)
	}
	// Source slice order must be untouched.
	if tpl.TimeBlocks[0].BlockID != "tb-04h-001" {
		t.Fatalf("template mutated by merge: %+v", tpl.TimeBlocks)
	}
}

func TestDefaultTimeBlocks(t *testing.T) {
	blocks := DefaultTimeBlocks()
	if len(blocks) != 18 {
		t.Fatalf("expected 18 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.Order != i {
			t.Fatalf("block %d order = %d", i, b.Order)
		}
		want := fmt.Sprintf("tb-%02dh-001", 4+i)
		if b.BlockID != want {
			t.Fatalf("block id = %q, want %q", b.BlockID, want)
		}
	}
}
