package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/dashboard"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testView(t *testing.T, snap calculator.Snapshot) dashboard.View {
	t.Helper()
	d := decimal.RequireFromString
	table := &calculator.PriceTable{
		Columns: []string{"Turkey", "Cranberry"},
		Regions: []calculator.Region{
			{State: "CA", Retailer: "Safeway", Prices: map[string]decimal.Decimal{"Turkey": d("1027.86"), "Cranberry": d("3.50")}},
			{State: "TX", Retailer: "H-E-B", Prices: map[string]decimal.Decimal{"Turkey": d("20.00"), "Cranberry": d("2.06")}},
		},
	}
	return dashboard.Build(table, snap, dashboard.DefaultSettings())
}

func TestWriteXLSX(t *testing.T) {
	view := testView(t, calculator.DefaultSnapshot())

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, view.Table))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"State", "Grocery Store", "Total Cost", "Turkey", "Cranberry"}, rows[0])
	assert.Equal(t, []string{"CA", "Safeway", "1031.36", "1027.86", "3.50"}, rows[1])
	assert.Equal(t, "22.06", rows[2][2])

	// Heat-map fills differ between the most and least expensive totals
	high, err := f.GetCellStyle(SheetName, "C2")
	require.NoError(t, err)
	low, err := f.GetCellStyle(SheetName, "C3")
	require.NoError(t, err)
	assert.NotZero(t, high)
	assert.NotEqual(t, high, low)
}

func TestWriteCSV(t *testing.T) {
	view := testView(t, calculator.DefaultSnapshot().With("Turkey", false))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, view.Table))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"CA", "Safeway", "$3.50", "$1,027.86", "$3.50"}, records[1])
	assert.Equal(t, []string{"TX", "H-E-B", "$2.06", "$20.00", "$2.06"}, records[2])
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPNG, testView(t, calculator.DefaultSnapshot())))
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])

	// Every item excluded: all totals are zero and the chart still renders
	snap := calculator.DefaultSnapshot().With("Turkey", false).With("Cranberry", false)
	buf.Reset()
	require.NoError(t, Write(&buf, FormatPNG, testView(t, snap)))
	assert.NotZero(t, buf.Len())

	assert.Error(t, WriteChart(&buf, "empty", nil))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, "image/png", FormatPNG.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
