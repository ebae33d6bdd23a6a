// Package pricesheet reads the grocery price sheet into a calculator.PriceTable.
//
// The sheet has one row per state/retailer. The first columns name the state,
// the retailer and its position; every other column is a catalog item holding
// a unit price. Price cells that are not numbers are read as zero.
package pricesheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Format is the encoding of a price sheet
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrEmptySheet is returned when the sheet has no header row
	ErrEmptySheet = errors.New("price sheet is empty")
	// ErrNoItems is returned when the header has no item columns
	ErrNoItems = errors.New("price sheet has no item columns")
)

// Header names accepted for the fixed columns, lower case
var (
	stateHeaders     = []string{"state", "region"}
	retailerHeaders  = []string{"grocery store", "chain", "retailer", "store"}
	latitudeHeaders  = []string{"latitude", "lat"}
	longitudeHeaders = []string{"longitude", "lon", "lng", "long"}
)

// ParseFormat maps a user supplied name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv", "txt":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported sheet format: %q", s)
	}
}

// DetectFormat guesses the format from a file name, then a content type.
// CSV is assumed when neither is conclusive.
func DetectFormat(name, contentType string) Format {
	if f, err := ParseFormat(path.Ext(name)); err == nil {
		return f
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if strings.Contains(mt, "spreadsheetml") || strings.Contains(mt, "ms-excel") {
			return FormatXLSX
		}
	}
	return FormatCSV
}

// Parse reads a sheet in the given format
func Parse(r io.Reader, format Format) (*calculator.PriceTable, error) {
	switch format {
	case FormatXLSX:
		return ParseXLSX(r)
	case FormatCSV, "":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("unsupported sheet format: %q", format)
	}
}

// ParseCSV reads a comma separated sheet
func ParseCSV(r io.Reader) (*calculator.PriceTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return FromRecords(records)
}

// ParseXLSX reads the first worksheet of a workbook
func ParseXLSX(r io.Reader) (*calculator.PriceTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	for _, row := range rows[min(1, len(rows)):] {
		for i, v := range row {
			row[i] = normalizeNumber(v)
		}
	}
	return FromRecords(rows)
}

// layout locates the fixed columns and the item columns of a header row
type layout struct {
	state, retailer, latitude, longitude int
	items                                []int
}

func resolveLayout(header []string) (layout, error) {
	l := layout{
		state:     findHeader(header, stateHeaders),
		retailer:  findHeader(header, retailerHeaders),
		latitude:  findHeader(header, latitudeHeaders),
		longitude: findHeader(header, longitudeHeaders),
	}
	// Unrecognised headers fall back to the documented column order
	if l.state < 0 || l.retailer < 0 || l.latitude < 0 || l.longitude < 0 {
		l.state, l.retailer, l.latitude, l.longitude = 0, 1, 2, 3
	}

	for i, name := range header {
		if i == l.state || i == l.retailer || i == l.latitude || i == l.longitude {
			continue
		}
		if name == "" {
			continue
		}
		l.items = append(l.items, i)
	}
	if len(l.items) == 0 {
		return l, ErrNoItems
	}
	return l, nil
}

func findHeader(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(h)
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// FromRecords builds a PriceTable from a header row followed by data rows
func FromRecords(records [][]string) (*calculator.PriceTable, error) {
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header = dedupeHeader(header)

	l, err := resolveLayout(header)
	if err != nil {
		return nil, err
	}

	table := &calculator.PriceTable{
		Columns: make([]string, 0, len(l.items)),
		Regions: make([]calculator.Region, 0, len(records)-1),
	}
	for _, i := range l.items {
		table.Columns = append(table.Columns, header[i])
	}

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		region := calculator.Region{
			State:     cell(rec, l.state),
			Retailer:  cell(rec, l.retailer),
			Latitude:  parseCoordinate(cell(rec, l.latitude)),
			Longitude: parseCoordinate(cell(rec, l.longitude)),
			Prices:    make(map[string]decimal.Decimal, len(l.items)),
		}
		for _, i := range l.items {
			region.Prices[header[i]] = calculator.ParsePrice(cell(rec, i))
		}
		table.Regions = append(table.Regions, region)
	}
	return table, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// dedupeHeader suffixes repeated column names with .1, .2, ... so every
// column keeps its own values
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))
	for _, h := range header {
		seen[h] = true
	}
	used := make(map[string]bool, len(header))
	for i, h := range header {
		name := h
		if h != "" && used[h] {
			for {
				counts[h]++
				name = fmt.Sprintf("%s.%d", h, counts[h])
				if !seen[name] && !used[name] {
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// normalizeNumber trims a workbook's raw binary float to the 15 significant
// digits a spreadsheet displays, e.g. 0.28499999999999998 becomes 0.285.
// Integers and non-numbers are returned unchanged.
func normalizeNumber(raw string) string {
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return raw
	}
	return strconv.FormatFloat(v, 'g', 15, 64)
}

// ParseBytes is Parse over an in-memory document
func ParseBytes(data []byte, format Format) (*calculator.PriceTable, error) {
	return Parse(bytes.NewReader(data), format)
}
