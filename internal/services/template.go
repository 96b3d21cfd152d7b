package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
)

// TemplateService serves role-scoped template catalogs and the admin
// mutations that version them. Reads validate structural integrity so a
// broken template never reaches hydration unnoticed.
type TemplateService struct {
	store store.Store
}

func NewTemplateService(s store.Store) *TemplateService {
	return &TemplateService{store: s}
}

// GetTemplate returns the active TemplateSet for a role after validating
// its internal consistency. A missing template is a configuration error,
// not user input.
func (s *TemplateService) GetTemplate(ctx context.Context, role string) (*model.TemplateSet, error) {
	ts, err := s.store.Templates().GetActive(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("no active template for role %q: %w", role, model.ErrConfiguration)
	}
	if err := ValidateTemplateSet(ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// PutTemplate stores a new version for ts.Role, validating it first.
func (s *TemplateService) PutTemplate(ctx context.Context, ts *model.TemplateSet) (*model.TemplateSet, error) {
	if ts.Role == "" {
		return nil, fmt.Errorf("%w: template role is required", model.ErrValidation)
	}
	if err := ValidateTemplateSet(ts); err != nil {
		return nil, err
	}
	return s.store.Templates().PutVersion(ctx, ts)
}

// Activate switches the active version for a role.
func (s *TemplateService) Activate(ctx context.Context, role string, version int) error {
	return s.store.Templates().Activate(ctx, role, version)
}

// ListVersions returns every stored version for a role, newest first.
func (s *TemplateService) ListVersions(ctx context.Context, role string) ([]*model.TemplateSet, error) {
	return s.store.Templates().ListVersions(ctx, role)
}

// ValidateTemplateSet checks the structural invariants of a template:
// every id in an order array resolves to an item in the corresponding
// collection and vice versa (no orphans), and sorting by the numeric
// order field reproduces the order array's sequence.
func ValidateTemplateSet(ts *model.TemplateSet) error {
	seenBlocks := make(map[string]struct{}, len(ts.TimeBlocks))
	for _, b := range ts.TimeBlocks {
		if b.BlockID == "" {
			return fmt.Errorf("%w: time block with empty id", model.ErrValidation)
		}
		if _, dup := seenBlocks[b.BlockID]; dup {
			return fmt.Errorf("%w: duplicate block id %q", model.ErrValidation, b.BlockID)
		}
		seenBlocks[b.BlockID] = struct{}{}
	}

	seenChecklists := make(map[string]struct{}, len(ts.Checklists))
	for _, cl := range ts.Checklists {
		if cl.ChecklistID == "" {
			return fmt.Errorf("%w: checklist with empty id", model.ErrValidation)
		}
		if _, dup := seenChecklists[cl.ChecklistID]; dup {
			return fmt.Errorf("%w: duplicate checklist id %q", model.ErrValidation, cl.ChecklistID)
		}
		seenChecklists[cl.ChecklistID] = struct{}{}

		if err := validateChecklistOrder(cl); err != nil {
			return err
		}
	}
	return nil
}

func validateChecklistOrder(cl model.ChecklistDefinition) error {
	byID := make(map[string]model.ChecklistItemDefinition, len(cl.Items))
	for _, it := range cl.Items {
		if it.ItemID == "" {
			return fmt.Errorf("%w: checklist %q has item with empty id", model.ErrValidation, cl.ChecklistID)
		}
		if _, dup := byID[it.ItemID]; dup {
			return fmt.Errorf("%w: checklist %q has duplicate item id %q", model.ErrValidation, cl.ChecklistID, it.ItemID)
		}
		byID[it.ItemID] = it
	}

	if len(cl.ItemsOrder) == 0 {
		return nil
	}
	if len(cl.ItemsOrder) != len(cl.Items) {
		return fmt.Errorf("%w: checklist %q itemsOrder has %d entries for %d items",
			model.ErrValidation, cl.ChecklistID, len(cl.ItemsOrder), len(cl.Items))
	}
	seen := make(map[string]struct{}, len(cl.ItemsOrder))
	for _, id := range cl.ItemsOrder {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: checklist %q itemsOrder references unknown item %q",
				model.ErrValidation, cl.ChecklistID, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: checklist %q itemsOrder repeats item %q",
				model.ErrValidation, cl.ChecklistID, id)
		}
		seen[id] = struct{}{}
	}

	// The order array is authoritative; the numeric fallback must agree.
	byOrder := make([]model.ChecklistItemDefinition, len(cl.Items))
	copy(byOrder, cl.Items)
	sort.SliceStable(byOrder, func(i, j int) bool { return byOrder[i].Order < byOrder[j].Order })
	for i, it := range byOrder {
		if it.ItemID != cl.ItemsOrder[i] {
			return fmt.Errorf("%w: checklist %q numeric order diverges from itemsOrder at position %d",
				model.ErrValidation, cl.ChecklistID, i)
		}
	}
	return nil
}

// OrderedItems returns a checklist's items in display order: the
// ItemsOrder array when present, the numeric order field otherwise.
func OrderedItems(cl model.ChecklistDefinition) []model.ChecklistItemDefinition {
	if len(cl.ItemsOrder) == 0 {
		out := make([]model.ChecklistItemDefinition, len(cl.Items))
		copy(out, cl.Items)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
		return out
	}
	byID := make(map[string]model.ChecklistItemDefinition, len(cl.Items))
	for _, it := range cl.Items {
		byID[it.ItemID] = it
	}
	out := make([]model.ChecklistItemDefinition, 0, len(cl.ItemsOrder))
	for _, id := range cl.ItemsOrder {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}
