package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/amptracker/amp-tracker/internal/ids"
	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
	"github.com/amptracker/amp-tracker/internal/timeblock"
)

const (
	maxIDLen       = 100
	maxBlockNote   = 200
	maxTodoText    = 500
	maxItemText    = 500
	maxNotesLen    = 2000
	fallbackRole   = "public"
	dateLayout     = "2006-01-02"
	wakeTimeLayout = "15:04"
)

// DayService is the write-side Completion Recorder and the read-side
// Hydration component. Writes validate before touching the store, stamp
// completions from the injected clock, and invalidate the hydrated-view
// cache for the affected day.
type DayService struct {
	store     store.Store
	templates *TemplateService
	clock     Clock
	log       zerolog.Logger
	cache     *dayViewCache
}

func NewDayService(s store.Store, templates *TemplateService, clock Clock, log zerolog.Logger) *DayService {
	if clock == nil {
		clock = SystemClock
	}
	return &DayService{
		store:     s,
		templates: templates,
		clock:     clock,
		log:       log,
		cache:     newDayViewCache(),
	}
}

// --- validation helpers ---

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be a valid YYYY-MM-DD, got %q", model.ErrValidation, date)
	}
	return nil
}

func validateID(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", model.ErrValidation, field)
	}
	if len(v) > maxIDLen {
		return fmt.Errorf("%w: %s exceeds %d characters", model.ErrValidation, field, maxIDLen)
	}
	return nil
}

func validateWakeTime(v string) error {
	if _, err := time.Parse(wakeTimeLayout, v); err != nil {
		return fmt.Errorf("%w: wake time must be HH:MM, got %q", model.ErrValidation, v)
	}
	return nil
}

// sanitize trims and caps free text. The cap is in bytes but the cut
// backs up to a rune start so multi-byte characters are never split.
func sanitize(v string, max int) string {
	v = strings.TrimSpace(v)
	if len(v) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	return v
}

// --- day access ---

// resolveUser loads the user and enforces the explicit-timezone policy:
// a user without a timezone is an operator mistake, not a silent fallback
// to the host zone.
func (s *DayService) resolveUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TimeZone == "" {
		return nil, fmt.Errorf("user %s has no timezone: %w", userID, model.ErrConfiguration)
	}
	return u, nil
}

// ensureDay lazily creates the day record on first write.
func (s *DayService) ensureDay(ctx context.Context, u *model.User, date string) (*model.DayRecord, error) {
	return s.store.Days().Ensure(ctx, &model.DayRecord{
		UserID:       u.UserID,
		Date:         date,
		UserTimezone: u.TimeZone,
		CreationTime: s.clock(),
	})
}

// --- Completion Recorder operations ---

// CompleteChecklistItem records an item completion. Re-invoking for an
// already-completed item is a no-op: the entry is not duplicated and the
// original timestamp stands.
func (s *DayService) CompleteChecklistItem(ctx context.Context, userID, checklistID, itemID, itemText, date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateID("checklistId", checklistID); err != nil {
		return err
	}
	if err := validateID("itemId", itemID); err != nil {
		return err
	}

	u, err := s.resolveUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.ensureDay(ctx, u, date); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}

	item := model.ItemCompletion{
		ItemID:      itemID,
		Text:        sanitize(itemText, maxItemText),
		CompletedAt: s.clock(),
	}
	if _, err := s.store.Days().CompleteChecklistItem(ctx, userID, date, checklistID, item); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return nil
}

// UncompleteChecklistItem removes an item completion. Absence of the item
// or of the whole day record is a no-op.
func (s *DayService) UncompleteChecklistItem(ctx context.Context, userID, checklistID, itemID, date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateID("checklistId", checklistID); err != nil {
		return err
	}
	if err := validateID("itemId", itemID); err != nil {
		return err
	}

	if _, err := s.store.Days().Get(ctx, userID, date); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to update day record: %w", err)
	}
	if _, err := s.store.Days().UncompleteChecklistItem(ctx, userID, date, checklistID, itemID); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return nil
}

// ToggleTimeBlock flips a time block's completion for the day, creating
// the day record if needed. The slot assignment and its audit fields are
// computed by the engine from the server clock and the day's wake time.
func (s *DayService) ToggleTimeBlock(ctx context.Context, userID, date, blockID string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateID("blockId", blockID); err != nil {
		return err
	}
	if !ids.IsBlockID(blockID) {
		return fmt.Errorf("%w: malformed block id %q", model.ErrValidation, blockID)
	}

	u, err := s.resolveUser(ctx, userID)
	if err != nil {
		return err
	}
	rec, err := s.ensureDay(ctx, u, date)
	if err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}

	var wake *timeblock.WakeSettings
	if rec.WakeTime != nil && *rec.WakeTime != "" {
		wake = &timeblock.WakeSettings{WakeTime: *rec.WakeTime, Date: rec.Date}
	}
	now := s.clock()
	asg, err := timeblock.Assign(now, u.TimeZone, wake)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}

	inserted, err := s.store.Days().CompleteTimeBlock(ctx, userID, date, model.TimeBlockCompletion{
		BlockID:               blockID,
		CompletedAt:           now,
		BlockIndex:            asg.BlockIndex,
		TimezoneOffsetMinutes: asg.TimezoneOffsetMinutes,
		LocalTimeUsed:         asg.LocalTimeUsed,
	})
	if err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	if !inserted {
		if _, err := s.store.Days().UncompleteTimeBlock(ctx, userID, date, blockID); err != nil {
			return fmt.Errorf("failed to update day record: %w", err)
		}
	}
	s.cache.invalidate(userID, date)
	return nil
}

// AddBlockNote appends a note to a block. Empty or whitespace-only notes
// are silently dropped.
func (s *DayService) AddBlockNote(ctx context.Context, userID, date, blockID, note string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateID("blockId", blockID); err != nil {
		return err
	}
	note = sanitize(note, maxBlockNote)
	if note == "" {
		return nil
	}

	u, err := s.resolveUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.ensureDay(ctx, u, date); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	if err := s.store.Days().AddBlockNote(ctx, userID, date, blockID, note, s.clock()); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return nil
}

// AddTodoItem appends a user-authored todo and returns it with its
// allocated id.
func (s *DayService) AddTodoItem(ctx context.Context, userID, date, text string) (model.TodoItem, error) {
	if err := validateDate(date); err != nil {
		return model.TodoItem{}, err
	}
	text = sanitize(text, maxTodoText)
	if text == "" {
		return model.TodoItem{}, fmt.Errorf("%w: todo text is required", model.ErrValidation)
	}

	u, err := s.resolveUser(ctx, userID)
	if err != nil {
		return model.TodoItem{}, err
	}
	rec, err := s.ensureDay(ctx, u, date)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("failed to update day record: %w", err)
	}

	existing := make(map[string]struct{}, len(rec.TodoList))
	for _, t := range rec.TodoList {
		existing[t.ItemID] = struct{}{}
	}
	item := model.TodoItem{
		ItemID: ids.NewTodoID(s.clock(), existing),
		Text:   text,
	}
	if err := s.store.Days().AppendTodo(ctx, userID, date, item, s.clock()); err != nil {
		return model.TodoItem{}, fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return item, nil
}

// SetTodoCompleted flips a todo's completed flag, stamping or clearing
// its completion time.
func (s *DayService) SetTodoCompleted(ctx context.Context, userID, date, itemID string, completed bool) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateID("itemId", itemID); err != nil {
		return err
	}
	var at *time.Time
	if completed {
		now := s.clock()
		at = &now
	}
	if err := s.store.Days().SetTodoCompleted(ctx, userID, date, itemID, completed, at); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return nil
}

// AddChecklistNotes overwrites the notes on a checklist's completion
// entry. Both the day record and the completion entry must already exist.
func (s *DayService) AddChecklistNotes(ctx context.Context, userID, checklistID, notes, date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateID("checklistId", checklistID); err != nil {
		return err
	}
	notes = sanitize(notes, maxNotesLen)

	if _, err := s.store.Days().Get(ctx, userID, date); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("no day record for %s on %s: %w", userID, date, model.ErrNotFound)
		}
		return fmt.Errorf("failed to update day record: %w", err)
	}
	if err := s.store.Days().SetChecklistNotes(ctx, userID, date, checklistID, notes); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return nil
}

// SetWakeTime records the wake time the assignment engine consults for
// same-day completions.
func (s *DayService) SetWakeTime(ctx context.Context, userID, date, wakeTime string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if err := validateWakeTime(wakeTime); err != nil {
		return err
	}
	u, err := s.resolveUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.ensureDay(ctx, u, date); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	if err := s.store.Days().SetWakeTime(ctx, userID, date, wakeTime); err != nil {
		return fmt.Errorf("failed to update day record: %w", err)
	}
	s.cache.invalidate(userID, date)
	return nil
}

// --- Hydration ---

// HydrateDay merges the active template for the user's role with the
// user's day record. Reads degrade gracefully: a failed template or store
// read yields a default view rather than failing the page, and the merge
// never mutates the underlying template or record.
func (s *DayService) HydrateDay(ctx context.Context, userID, date string) (*model.MergedDayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if v, ok := s.cache.get(userID, date); ok {
		return v, nil
	}

	// A failed read below falls back to defaults so the page still renders.
	// Fallback views are never cached: the next hydrate must retry the
	// store rather than replay the degraded view until the next write.
	degraded := false

	role := fallbackRole
	if u, err := s.store.Users().Get(ctx, userID); err == nil && u.Role != "" {
		role = u.Role
	} else if err != nil {
		degraded = true
		s.log.Warn().Err(err).Str("user", userID).Msg("hydrate: user lookup failed, using fallback role")
	}

	template, err := s.templates.GetTemplate(ctx, role)
	if err != nil {
		degraded = true
		s.log.Warn().Err(err).Str("role", role).Msg("hydrate: template unavailable, using defaults")
		template = &model.TemplateSet{Role: role}
	}
	blocks := template.TimeBlocks
	if len(blocks) == 0 {
		blocks = DefaultTimeBlocks()
	}

	rec, err := s.store.Days().Get(ctx, userID, date)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			degraded = true
			s.log.Warn().Err(err).Str("user", userID).Str("date", date).Msg("hydrate: day record read failed, serving empty day")
		}
		rec = &model.DayRecord{
			UserID:               userID,
			Date:                 date,
			ChecklistCompletions: map[string]*model.ChecklistCompletion{},
		}
	}

	view := mergeDay(role, template, blocks, rec)
	if !degraded {
		s.cache.put(userID, date, view)
	}
	return view, nil
}

// DefaultTimeBlocks derives block definitions from the canonical slot
// catalog, used when a template carries no block list of its own.
func DefaultTimeBlocks() []model.TimeBlockDefinition {
	slots := timeblock.Slots()
	out := make([]model.TimeBlockDefinition, len(slots))
	for i, s := range slots {
		out[i] = model.TimeBlockDefinition{
			BlockID: fmt.Sprintf("tb-%02dh-001", s.StartHour),
			Time:    fmt.Sprintf("%02d:00", s.StartHour),
			Label:   s.Label,
			Order:   s.Index,
		}
	}
	return out
}

func mergeDay(role string, template *model.TemplateSet, blocks []model.TimeBlockDefinition, rec *model.DayRecord) *model.MergedDayView {
	view := &model.MergedDayView{
		UserID:     rec.UserID,
		Date:       rec.Date,
		Role:       role,
		WakeTime:   rec.WakeTime,
		TimeBlocks: make([]model.MergedTimeBlock, 0, len(blocks)),
		Checklists: make([]model.MergedChecklist, 0, len(template.Checklists)),
		TodoList:   make([]model.TodoItem, len(rec.TodoList)),
	}
	copy(view.TodoList, rec.TodoList)

	completedBlocks := make(map[string]model.TimeBlockCompletion, len(rec.TimeBlockCompletions))
	for _, c := range rec.TimeBlockCompletions {
		completedBlocks[c.BlockID] = c
	}
	ordered := make([]model.TimeBlockDefinition, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	for _, def := range ordered {
		mb := model.MergedTimeBlock{
			BlockID: def.BlockID,
			Time:    def.Time,
			Label:   def.Label,
			Order:   def.Order,
			Notes:   []string{},
		}
		if notes := rec.BlockNotes[def.BlockID]; len(notes) > 0 {
			mb.Notes = append(mb.Notes, notes...)
		}
		if c, ok := completedBlocks[def.BlockID]; ok {
			mb.Complete = true
			at := c.CompletedAt
			mb.CompletedAt = &at
		}
		view.TimeBlocks = append(view.TimeBlocks, mb)
	}

	checklists := make([]model.ChecklistDefinition, len(template.Checklists))
	copy(checklists, template.Checklists)
	sort.SliceStable(checklists, func(i, j int) bool { return checklists[i].Order < checklists[j].Order })
	for _, cl := range checklists {
		mc := model.MergedChecklist{
			ChecklistID: cl.ChecklistID,
			Title:       cl.Title,
			Order:       cl.Order,
			Items:       make([]model.MergedChecklistItem, 0, len(cl.Items)),
		}
		completion := rec.ChecklistCompletions[cl.ChecklistID]
		completedItems := map[string]model.ItemCompletion{}
		if completion != nil {
			mc.Notes = completion.Notes
			mc.CompletedAt = completion.CompletedAt
			for _, it := range completion.Items {
				completedItems[it.ItemID] = it
			}
		}
		for _, def := range OrderedItems(cl) {
			mi := model.MergedChecklistItem{
				ItemID: def.ItemID,
				Text:   def.Text,
				Order:  def.Order,
			}
			if done, ok := completedItems[def.ItemID]; ok {
				mi.Completed = true
				at := done.CompletedAt
				mi.CompletedAt = &at
			}
			mc.Items = append(mc.Items, mi)
		}
		view.Checklists = append(view.Checklists, mc)
	}
	return view
}
