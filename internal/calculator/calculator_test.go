package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleTable() *PriceTable {
	return &PriceTable{
		Columns: []string{"Turkey", "Cranberry"},
		Regions: []Region{
			{State: "CA", Retailer: "Safeway", Latitude: 36.77, Longitude: -119.41,
				Prices: map[string]decimal.Decimal{"Turkey": dec("27.86"), "Cranberry": dec("3.50")}},
			{State: "TX", Retailer: "H-E-B", Latitude: 31.96, Longitude: -99.90,
				Prices: map[string]decimal.Decimal{"Turkey": dec("20.00"), "Cranberry": dec("2.06")}},
		},
	}
}

func totalsByState(rows []DerivedRow) map[string]string {
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.State] = r.Total.StringFixed(2)
	}
	return out
}

func TestAggregateExcludesUncheckedItems(t *testing.T) {
	table := sampleTable()
	snap := DefaultSnapshot().With("Cranberry", false)

	rows := Aggregate(table, NewSelection(table.Catalog(), snap))
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]string{"CA": "27.86", "TX": "20.00"}, totalsByState(rows))
	assert.Equal(t, 1.0, rows[0].Scale)
	assert.InDelta(t, 0.71787, rows[1].Scale, 1e-5)
}

func TestAggregateAllUncheckedHasZeroScale(t *testing.T) {
	table := sampleTable()
	snap := DefaultSnapshot().With("Turkey", false).With("Cranberry", false)

	rows := Aggregate(table, NewSelection(table.Catalog(), snap))

	for _, r := range rows {
		assert.True(t, r.Total.IsZero(), r.State)
		assert.Equal(t, 0.0, r.Scale, r.State)
		assert.Equal(t, "$0.00", r.CostText)
	}
}

func TestAggregateEverySelectionSumsExactly(t *testing.T) {
	table := sampleTable()
	cat := table.Catalog()
	labels := cat.Regular

	for mask := 0; mask < 1<<len(labels); mask++ {
		snap := DefaultSnapshot()
		for i, label := range labels {
			snap = snap.With(label, mask&(1<<i) != 0)
		}
		rows := Aggregate(table, NewSelection(cat, snap))
		for ri, row := range rows {
			want := decimal.Zero
			for i, label := range labels {
				if mask&(1<<i) != 0 {
					want = want.Add(table.Regions[ri].Prices[label])
				}
			}
			assert.True(t, want.Equal(row.Total), "mask %b region %s: want %s got %s", mask, row.State, want, row.Total)
			assert.GreaterOrEqual(t, row.Scale, 0.0)
			assert.LessOrEqual(t, row.Scale, 1.0)
		}
	}
}

func TestAggregateMissingColumnContributesZero(t *testing.T) {
	table := sampleTable()
	table.Columns = append(table.Columns, "Pie")
	table.Regions[0].Prices["Pie"] = dec("8.99")

	rows := Aggregate(table, NewSelection(table.Catalog(), DefaultSnapshot()))

	assert.Equal(t, "40.35", rows[0].Total.StringFixed(2))
	assert.Equal(t, "22.06", rows[1].Total.StringFixed(2))
}

func TestAggregateDoesNotMutateTable(t *testing.T) {
	table := sampleTable()
	before := table.Regions[0].Prices["Turkey"]

	Aggregate(table, NewSelection(table.Catalog(), DefaultSnapshot().With("Turkey", false)))

	assert.True(t, before.Equal(table.Regions[0].Prices["Turkey"]))
	assert.Len(t, table.Regions[0].Prices, 2)
}

func TestNonNumericCellCountsAsZero(t *testing.T) {
	table := &PriceTable{
		Columns: []string{"Turkey", "Stuffing"},
		Regions: []Region{
			{State: "OH", Prices: map[string]decimal.Decimal{"Turkey": ParsePrice("18.40"), "Stuffing": ParsePrice("N/A")}},
		},
	}

	rows := Aggregate(table, NewSelection(table.Catalog(), DefaultSnapshot()))

	assert.Equal(t, "18.40", rows[0].Total.StringFixed(2))
	assert.Equal(t, "$0.00", rows[0].Items[1].Text)
}

func TestPrivateLabelRoundTrip(t *testing.T) {
	table := &PriceTable{
		Columns: []string{"Turkey", "Stuffing", "Turkey - Private Label", "Rolls"},
		Regions: []Region{
			{State: "NY", Prices: map[string]decimal.Decimal{
				"Turkey": dec("30.10"), "Turkey - Private Label": dec("22.45"),
				"Stuffing": dec("3.33"), "Rolls": dec("4.01"),
			}},
		},
	}
	cat := table.Catalog()
	snap := DefaultSnapshot().With("Rolls", false)

	regular := Aggregate(table, NewSelection(cat, snap))
	snap.PrivateLabel = true
	private := Aggregate(table, NewSelection(cat, snap))
	snap.PrivateLabel = false
	back := Aggregate(table, NewSelection(cat, snap))

	assert.Equal(t, "33.43", regular[0].Total.StringFixed(2))
	assert.Equal(t, "25.78", private[0].Total.StringFixed(2))
	assert.True(t, regular[0].Total.Equal(back[0].Total))
	assert.Equal(t, regular[0].CostText, back[0].CostText)

	require.Len(t, private[0].Items, 3)
	assert.Equal(t, "Turkey - Private Label", private[0].Items[0].Column)
	assert.Equal(t, "Turkey", private[0].Items[0].Label)
	assert.Equal(t, "Stuffing", private[0].Items[1].Column)
}

func TestRound2AndFormatCurrency(t *testing.T) {
	tests := []struct {
		in      string
		rounded float64
		text    string
	}{
		{"0", 0, "$0.00"},
		{"27.86", 27.86, "$27.86"},
		{"20", 20, "$20.00"},
		{"1234.5", 1234.5, "$1,234.50"},
		{"1234567.891", 1234567.89, "$1,234,567.89"},
		{"0.125", 0.13, "$0.13"},
		{"99.995", 100, "$100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d := dec(tt.in)
			assert.Equal(t, tt.rounded, Round2(d))
			assert.Equal(t, tt.text, FormatCurrency(d))
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := map[string]string{
		"3.50":      "3.5",
		" 12 ":      "12",
		"$1,299.99": "1299.99",
		"N/A":       "0",
		"":          "0",
		"-4":        "0",
		"NaN":       "0",
		"1e2":       "100",
	}
	for in, want := range tests {
		assert.True(t, dec(want).Equal(ParsePrice(in)), "ParsePrice(%q) = %s", in, ParsePrice(in))
	}
}

func TestScaleBounds(t *testing.T) {
	assert.Equal(t, 0.0, Scale(dec("5"), decimal.Zero))
	assert.Equal(t, 1.0, Scale(dec("5"), dec("5")))
	assert.Equal(t, 0.5, Scale(dec("2.5"), dec("5")))
	assert.Equal(t, 0.0, Scale(decimal.Zero, dec("5")))
}
