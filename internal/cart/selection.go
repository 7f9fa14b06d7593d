package cart

import (
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
)

// Selection tracks the addon choices being composed for one cart item,
// either on first add or while editing an existing line. It operates
// on a deep copy taken at construction: the shared product record is
// never mutated.
type Selection struct {
	groups []database.AddonGroup
}

// NewSelection seeds a selection from a product's addon groups (or a
// cart item's snapshot when editing).
func NewSelection(groups []database.AddonGroup) *Selection {
	return &Selection{groups: database.CloneAddonGroups(groups)}
}

// Toggle flips the item at (groupIdx, itemIdx) and returns the
// resulting unit-price delta.
//
// Multiple-choice groups flip the single item independently. Single-
// choice groups behave like radios: the item is selected, every other
// item in the group deselected, and the delta accounts for whatever
// was deselected. Re-selecting the sole selected item of a single-
// choice group is a no-op; a group with no selection yet (first
// render) is tolerated. Out-of-range indices are no-ops, not errors.
func (s *Selection) Toggle(groupIdx, itemIdx int) int64 {
	if groupIdx < 0 || groupIdx >= len(s.groups) {
		return 0
	}
	g := &s.groups[groupIdx]
	if itemIdx < 0 || itemIdx >= len(g.Items) {
		return 0
	}

	if g.Type == enum.AddonTypeMultiple {
		item := &g.Items[itemIdx]
		item.IsSelected = !item.IsSelected
		if item.IsSelected {
			return item.Price
		}
		return -item.Price
	}

	// Single-choice: selecting the current selection changes nothing,
	// and a single-choice group never toggles back to "none".
	if g.Items[itemIdx].IsSelected {
		return 0
	}
	var deselected int64
	for i := range g.Items {
		if g.Items[i].IsSelected {
			deselected += g.Items[i].Price
		}
		g.Items[i].IsSelected = i == itemIdx
	}
	return g.Items[itemIdx].Price - deselected
}

// Groups returns a snapshot of the current selection state, detached
// from the model so later toggles don't mutate handed-out copies.
func (s *Selection) Groups() []database.AddonGroup {
	return database.CloneAddonGroups(s.groups)
}

// AddonTotal is the sum of all currently selected addon prices.
func (s *Selection) AddonTotal() int64 {
	var total int64
	for _, g := range s.groups {
		for _, item := range g.Items {
			if item.IsSelected {
				total += item.Price
			}
		}
	}
	return total
}

// MissingRequired returns the names of single-choice groups that still
// have no selection. Required-group enforcement happens at the
// submission boundary, not inside Toggle.
func (s *Selection) MissingRequired() []string {
	var missing []string
	for _, g := range s.groups {
		if g.Type != enum.AddonTypeOne || len(g.Items) == 0 {
			continue
		}
		selected := false
		for _, item := range g.Items {
			if item.IsSelected {
				selected = true
				break
			}
		}
		if !selected {
			missing = append(missing, g.Name)
		}
	}
	return missing
}
