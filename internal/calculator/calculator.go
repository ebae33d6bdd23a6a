package calculator

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ItemCost is the price of one active item in a region
type ItemCost struct {
	Label    string          `json:"label"`
	Column   string          `json:"column"`
	Price    decimal.Decimal `json:"price"`
	Text     string          `json:"text"`
	Included bool            `json:"included"`
}

// DerivedRow holds the basket result for one region
type DerivedRow struct {
	State        string          `json:"state"`
	Retailer     string          `json:"retailer"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Items        []ItemCost      `json:"items"`
	Total        decimal.Decimal `json:"totalCost"`
	TotalRounded float64         `json:"totalCostRounded"`
	CostText     string          `json:"costText"`
	Scale        float64         `json:"costScale"`
}

// Aggregate computes one DerivedRow per region for the given selection.
// Totals are summed from the table on every call; the table is not modified.
func Aggregate(table *PriceTable, sel SelectionSet) []DerivedRow {
	rows := make([]DerivedRow, 0, len(table.Regions))
	max := decimal.Zero

	for _, region := range table.Regions {
		total := decimal.Zero
		items := make([]ItemCost, 0, len(sel.Items))
		for _, item := range sel.Items {
			price := region.Price(item.Column)
			if sel.Included(item.Column) {
				total = total.Add(price)
			}
			items = append(items, ItemCost{
				Label:    item.Label,
				Column:   item.Column,
				Price:    price,
				Text:     FormatCurrency(price),
				Included: item.Included,
			})
		}
		if total.GreaterThan(max) {
			max = total
		}

		rows = append(rows, DerivedRow{
			State:        region.State,
			Retailer:     region.Retailer,
			Latitude:     region.Latitude,
			Longitude:    region.Longitude,
			Items:        items,
			Total:        total,
			TotalRounded: Round2(total),
			CostText:     FormatCurrency(total),
		})
	}

	// All-zero totals leave every scale at zero
	if max.IsZero() {
		return rows
	}
	for i := range rows {
		rows[i].Scale = Scale(rows[i].Total, max)
	}
	return rows
}

// Scale normalizes a total against the maximum total, clamped to [0,1]
func Scale(total, max decimal.Decimal) float64 {
	if !max.IsPositive() || !total.IsPositive() {
		return 0
	}
	if total.GreaterThanOrEqual(max) {
		return 1
	}
	return total.Div(max).InexactFloat64()
}

// MaxTotal returns the largest total across rows
func MaxTotal(rows []DerivedRow) decimal.Decimal {
	max := decimal.Zero
	for _, r := range rows {
		if r.Total.GreaterThan(max) {
			max = r.Total
		}
	}
	return max
}

// Round2 rounds half away from zero to 2 decimal places
func Round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// FormatCurrency renders a dollar amount with thousands separators and
// exactly two decimals, e.g. $1,234.50
func FormatCurrency(d decimal.Decimal) string {
	r := d.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Abs()
	}
	whole := r.Truncate(0)
	cents := r.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(whole.IntPart()), cents)
}
