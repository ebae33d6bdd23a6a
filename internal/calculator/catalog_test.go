package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCatalogSplitsPrivateLabel(t *testing.T) {
	cat := NewCatalog([]string{
		"Turkey", "Cranberry Sauce", "Turkey - Private Label",
		"Stuffing", "Stuffing- Private Label", "Gravy - Private Label",
	})

	assert.Equal(t, []string{"Turkey", "Cranberry Sauce", "Stuffing"}, cat.Regular)

	pl, ok := cat.PrivateLabelFor("Turkey")
	assert.True(t, ok)
	assert.Equal(t, "Turkey - Private Label", pl)

	pl, ok = cat.PrivateLabelFor("Stuffing")
	assert.True(t, ok)
	assert.Equal(t, "Stuffing- Private Label", pl)

	_, ok = cat.PrivateLabelFor("Cranberry Sauce")
	assert.False(t, ok)
}

func TestActiveItemsSubstitutesWholesale(t *testing.T) {
	cat := NewCatalog([]string{"Turkey", "Rolls", "Turkey - Private Label"})

	off := ActiveItems(cat, false)
	assert.Equal(t, []ActiveItem{{Label: "Turkey", Column: "Turkey"}, {Label: "Rolls", Column: "Rolls"}}, off)

	on := ActiveItems(cat, true)
	assert.Equal(t, []ActiveItem{
		{Label: "Turkey", Column: "Turkey - Private Label"},
		{Label: "Rolls", Column: "Rolls"},
	}, on)
	assert.True(t, on[0].PrivateLabel())
	assert.False(t, on[1].PrivateLabel())
}

func TestSelectionKeysFollowToggle(t *testing.T) {
	cat := NewCatalog([]string{"Turkey", "Rolls", "Turkey - Private Label"})
	snap := Snapshot{PrivateLabel: true, Included: map[string]bool{"Turkey": false}}

	sel := NewSelection(cat, snap)

	assert.Equal(t, []string{"Turkey - Private Label", "Rolls"}, sel.Columns())
	assert.False(t, sel.Included("Turkey - Private Label"))
	assert.False(t, sel.Included("Turkey"))
	assert.True(t, sel.Included("Rolls"))
}

func TestSnapshotWithCopies(t *testing.T) {
	base := DefaultSnapshot().With("Turkey", false)
	next := base.With("Rolls", false)

	assert.False(t, base.IsIncluded("Turkey"))
	assert.True(t, base.IsIncluded("Rolls"))
	assert.False(t, next.IsIncluded("Rolls"))
	assert.Equal(t, []string{"Rolls", "Turkey"}, next.Excluded())
	assert.Empty(t, DefaultSnapshot().Excluded())
	assert.Equal(t, []string{"Turkey"}, next.With("Rolls", true).Excluded())
}
