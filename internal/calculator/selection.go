package calculator

import "sort"

// Snapshot is the viewer's widget state at one interaction: the private-label
// toggle and the per-item checkboxes keyed by the label shown to the viewer.
// A label missing from Included counts as checked.
type Snapshot struct {
	PrivateLabel bool            `json:"privateLabel"`
	Included     map[string]bool `json:"included,omitempty"`
}

// DefaultSnapshot has the toggle off and every item checked
func DefaultSnapshot() Snapshot {
	return Snapshot{}
}

// IsIncluded reports the checkbox state for a label
func (s Snapshot) IsIncluded(label string) bool {
	if v, ok := s.Included[label]; ok {
		return v
	}
	return true
}

// With returns a copy of the snapshot with one checkbox changed
func (s Snapshot) With(label string, included bool) Snapshot {
	next := Snapshot{
		PrivateLabel: s.PrivateLabel,
		Included:     make(map[string]bool, len(s.Included)+1),
	}
	for k, v := range s.Included {
		next.Included[k] = v
	}
	next.Included[label] = included
	return next
}

// Excluded lists the unchecked labels in sorted order
func (s Snapshot) Excluded() []string {
	var out []string
	for label, ok := range s.Included {
		if !ok {
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}

// SelectedItem is one entry of a SelectionSet
type SelectedItem struct {
	ActiveItem
	Included bool `json:"included"`
}

// SelectionSet is the active item set with an included flag per price column
type SelectionSet struct {
	PrivateLabel bool           `json:"privateLabel"`
	Items        []SelectedItem `json:"items"`
	byColumn     map[string]bool
}

// NewSelection resolves a snapshot against the catalog. The active columns
// come from ActiveItems; flags follow the snapshot's labels, so flipping the
// toggle swaps columns without touching the checkboxes.
func NewSelection(c Catalog, snap Snapshot) SelectionSet {
	active := ActiveItems(c, snap.PrivateLabel)
	sel := SelectionSet{
		PrivateLabel: snap.PrivateLabel,
		Items:        make([]SelectedItem, 0, len(active)),
		byColumn:     make(map[string]bool, len(active)),
	}
	for _, item := range active {
		included := snap.IsIncluded(item.Label)
		sel.Items = append(sel.Items, SelectedItem{ActiveItem: item, Included: included})
		sel.byColumn[item.Column] = included
	}
	return sel
}

// Included reports whether a price column counts toward the total.
// Columns outside the active set are never included.
func (s SelectionSet) Included(column string) bool {
	return s.byColumn[column]
}

// Columns returns the active price columns in display order
func (s SelectionSet) Columns() []string {
	cols := make([]string, len(s.Items))
	for i, item := range s.Items {
		cols[i] = item.Column
	}
	return cols
}
