package cart_test

import (
	"testing"

	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
)

func testGroups() []database.AddonGroup {
	return []database.AddonGroup{
		{
			Name: "Size",
			Type: enum.AddonTypeOne,
			Items: []database.AddonItem{
				{Name: "Regular", Price: 0},
				{Name: "Large", Price: 5000},
				{Name: "Extra Large", Price: 9000},
			},
		},
		{
			Name: "Topping",
			Type: enum.AddonTypeMultiple,
			Items: []database.AddonItem{
				{Name: "Cheese", Price: 3000},
				{Name: "Egg", Price: 4000},
			},
		},
	}
}

func selectedNames(g database.AddonGroup) []string {
	var names []string
	for _, item := range g.Items {
		if item.IsSelected {
			names = append(names, item.Name)
		}
	}
	return names
}

func TestToggle_MultipleFlipsIndependently(t *testing.T) {
	sel := cart.NewSelection(testGroups())

	if delta := sel.Toggle(1, 0); delta != 3000 {
		t.Errorf("select Cheese: delta = %d, want 3000", delta)
	}
	if delta := sel.Toggle(1, 1); delta != 4000 {
		t.Errorf("select Egg: delta = %d, want 4000", delta)
	}
	if delta := sel.Toggle(1, 0); delta != -3000 {
		t.Errorf("deselect Cheese: delta = %d, want -3000", delta)
	}

	got := selectedNames(sel.Groups()[1])
	if len(got) != 1 || got[0] != "Egg" {
		t.Errorf("selected toppings = %v, want [Egg]", got)
	}
}

func TestToggle_OneActsAsRadio(t *testing.T) {
	sel := cart.NewSelection(testGroups())

	// No prior selection: delta is the full item price.
	if delta := sel.Toggle(0, 1); delta != 5000 {
		t.Errorf("first select Large: delta = %d, want 5000", delta)
	}
	// Switching accounts for the deselected item.
	if delta := sel.Toggle(0, 2); delta != 4000 {
		t.Errorf("switch Large->Extra Large: delta = %d, want 4000", delta)
	}
	// Re-selecting the sole selection is a no-op.
	if delta := sel.Toggle(0, 2); delta != 0 {
		t.Errorf("re-select sole selection: delta = %d, want 0", delta)
	}
	// Switching down yields a negative delta.
	if delta := sel.Toggle(0, 0); delta != -9000 {
		t.Errorf("switch to Regular: delta = %d, want -9000", delta)
	}

	got := selectedNames(sel.Groups()[0])
	if len(got) != 1 || got[0] != "Regular" {
		t.Errorf("selected sizes = %v, want [Regular]", got)
	}
}

func TestToggle_OneAlwaysExactlyOneSelected(t *testing.T) {
	sel := cart.NewSelection(testGroups())

	sequence := [][2]int{{0, 0}, {0, 2}, {0, 2}, {0, 1}, {0, 0}, {0, 0}}
	for _, step := range sequence {
		sel.Toggle(step[0], step[1])
		if n := len(selectedNames(sel.Groups()[0])); n != 1 {
			t.Fatalf("after toggling %v: %d items selected in ONE group, want 1", step, n)
		}
	}
}

func TestToggle_OutOfRangeIsNoop(t *testing.T) {
	sel := cart.NewSelection(testGroups())

	for _, step := range [][2]int{{-1, 0}, {5, 0}, {0, -1}, {0, 10}} {
		if delta := sel.Toggle(step[0], step[1]); delta != 0 {
			t.Errorf("Toggle%v: delta = %d, want 0", step, delta)
		}
	}
	if sel.AddonTotal() != 0 {
		t.Errorf("AddonTotal = %d, want 0 after no-op toggles", sel.AddonTotal())
	}
}

func TestSelection_DoesNotMutateSource(t *testing.T) {
	source := testGroups()
	sel := cart.NewSelection(source)

	sel.Toggle(0, 1)
	sel.Toggle(1, 0)

	for gi, g := range source {
		for ii, item := range g.Items {
			if item.IsSelected {
				t.Errorf("source groups[%d].items[%d] was mutated", gi, ii)
			}
		}
	}
}

func TestSelection_AddonTotal(t *testing.T) {
	sel := cart.NewSelection(testGroups())

	sel.Toggle(0, 1) // Large +5000
	sel.Toggle(1, 0) // Cheese +3000
	sel.Toggle(1, 1) // Egg +4000

	if total := sel.AddonTotal(); total != 12000 {
		t.Errorf("AddonTotal = %d, want 12000", total)
	}
}

func TestSelection_MissingRequired(t *testing.T) {
	sel := cart.NewSelection(testGroups())

	missing := sel.MissingRequired()
	if len(missing) != 1 || missing[0] != "Size" {
		t.Errorf("MissingRequired = %v, want [Size]", missing)
	}

	sel.Toggle(0, 0)
	if missing := sel.MissingRequired(); len(missing) != 0 {
		t.Errorf("MissingRequired after selection = %v, want none", missing)
	}
}
