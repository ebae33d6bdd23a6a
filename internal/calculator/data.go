package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Region is one row of the price sheet: a state served by a retailer
type Region struct {
	State     string                     `json:"state"`
	Retailer  string                     `json:"retailer"`
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Prices    map[string]decimal.Decimal `json:"prices"`
}

// Price returns the unit price for an item column, zero when the row has none
func (r Region) Price(column string) decimal.Decimal {
	if p, ok := r.Prices[column]; ok {
		return p
	}
	return decimal.Zero
}

// PriceTable holds every region row plus the item columns in sheet order.
// It is built once by the loader and only read afterwards.
type PriceTable struct {
	Columns []string `json:"columns"`
	Regions []Region `json:"regions"`
}

// Catalog returns the item catalog described by the table's columns
func (t *PriceTable) Catalog() Catalog {
	return NewCatalog(t.Columns)
}

// ParsePrice coerces a sheet cell to a price. Anything that is not a
// non-negative number becomes zero.
func ParsePrice(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
