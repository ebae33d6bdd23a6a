package calculator

import "strings"

// PrivateLabelSuffix marks the store-brand variant of an item column
const PrivateLabelSuffix = " - Private Label"

// Catalog partitions the sheet's item columns into regular items and their
// private-label counterparts
type Catalog struct {
	Regular      []string          `json:"regular"`
	PrivateLabel map[string]string `json:"privateLabel"` // regular name -> private-label column
}

// NewCatalog builds a catalog from item column names. Regular items keep
// their column order.
func NewCatalog(columns []string) Catalog {
	cat := Catalog{
		Regular:      make([]string, 0, len(columns)),
		PrivateLabel: make(map[string]string),
	}
	for _, col := range columns {
		if base, ok := privateLabelBase(col); ok {
			cat.PrivateLabel[base] = col
			continue
		}
		cat.Regular = append(cat.Regular, col)
	}
	return cat
}

// privateLabelBase strips the private-label suffix, tolerating a missing
// space before the dash ("Stuffing- Private Label")
func privateLabelBase(column string) (string, bool) {
	marker := strings.TrimPrefix(PrivateLabelSuffix, " ")
	if !strings.HasSuffix(column, marker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimSuffix(column, marker)), true
}

// PrivateLabelFor returns the private-label column for a regular item
func (c Catalog) PrivateLabelFor(item string) (string, bool) {
	col, ok := c.PrivateLabel[item]
	return col, ok
}

// ActiveItem pairs the label a viewer toggles with the column that supplies
// its price
type ActiveItem struct {
	Label  string `json:"label"`
	Column string `json:"column"`
}

// PrivateLabel reports whether the item is priced from a private-label column
func (a ActiveItem) PrivateLabel() bool {
	return a.Label != a.Column
}

// ActiveItems maps every regular item to the column used for pricing. With
// privateLabel set, each item that has a counterpart is swapped to it; the
// rest keep their regular column.
func ActiveItems(c Catalog, privateLabel bool) []ActiveItem {
	items := make([]ActiveItem, 0, len(c.Regular))
	for _, label := range c.Regular {
		column := label
		if privateLabel {
			if pl, ok := c.PrivateLabelFor(label); ok {
				column = pl
			}
		}
		items = append(items, ActiveItem{Label: label, Column: column})
	}
	return items
}
