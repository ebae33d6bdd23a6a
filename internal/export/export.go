// Package export writes the summary table as a spreadsheet, a CSV file or a
// bar chart of totals.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/dashboard"
	"github.com/julienbonastre/betterbasket/internal/mapstyle"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the summary table
const SheetName = "Summary"

// currencyFormat matches FormatCurrency
const currencyFormat = `"$"#,##0.00`

// Format is an export file type
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPNG  Format = "png"
)

// ContentType returns the MIME type served for a format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat validates an export format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatXLSX, FormatCSV, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// Write renders a view in the given format
func Write(w io.Writer, format Format, view dashboard.View) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, view.Table)
	case FormatCSV:
		return WriteCSV(w, view.Table)
	case FormatPNG:
		return WriteChart(w, view.Title, view.Rows)
	default:
		return fmt.Errorf("unsupported export format: %q", format)
	}
}

// moneyColumn reports whether a table column holds a cost
func moneyColumn(i int) bool {
	return i >= 2
}

// WriteXLSX writes the table to a one-sheet workbook. Cost cells are numbers
// with a currency format and carry the heat-map fill of the dashboard.
func WriteXLSX(w io.Writer, table dashboard.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	styles := newStyleCache(f)
	for r, row := range table.Rows {
		for c, cell := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if !moneyColumn(c) {
				if err := f.SetCellStr(SheetName, ref, cell.Text); err != nil {
					return fmt.Errorf("failed to write %s: %w", ref, err)
				}
				continue
			}
			if err := f.SetCellFloat(SheetName, ref, cell.Value, 2, 64); err != nil {
				return fmt.Errorf("failed to write %s: %w", ref, err)
			}
			id, err := styles.get(cell.Style)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetName, ref, ref, id); err != nil {
				return fmt.Errorf("failed to style %s: %w", ref, err)
			}
		}
	}

	if len(table.Columns) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(table.Columns))
		if err := f.SetColWidth(SheetName, "A", lastCol, 16); err != nil {
			return fmt.Errorf("failed to size columns: %w", err)
		}
		if err := f.SetPanes(SheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
		if len(table.Rows) > 0 {
			ref := fmt.Sprintf("A1:%s%d", lastCol, len(table.Rows)+1)
			if err := f.AutoFilter(SheetName, ref, nil); err != nil {
				return fmt.Errorf("failed to add filter: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// styleCache shares one workbook style per distinct cell color
type styleCache struct {
	f   *excelize.File
	ids map[mapstyle.CellStyle]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: make(map[mapstyle.CellStyle]int)}
}

func (c *styleCache) get(cs *mapstyle.CellStyle) (int, error) {
	var key mapstyle.CellStyle
	if cs != nil {
		key = *cs
	}
	if id, ok := c.ids[key]; ok {
		return id, nil
	}

	numFmt := currencyFormat
	style := &excelize.Style{CustomNumFmt: &numFmt}
	if key.Background != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{key.Background}}
	}
	if key.Color != "" {
		style.Font = &excelize.Font{Color: key.Color}
	}

	id, err := c.f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create cell style: %w", err)
	}
	c.ids[key] = id
	return id, nil
}

// WriteCSV writes the table with formatted currency strings
func WriteCSV(w io.Writer, table dashboard.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range table.Rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			rec[i] = cell.Text
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteChart renders a PNG bar chart of total cost per region, colored the
// same way as the map points
func WriteChart(w io.Writer, title string, rows []calculator.DerivedRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("no regions to chart")
	}

	bars := make([]chart.Value, 0, len(rows))
	for _, r := range rows {
		c := mapstyle.PointColor(r.Scale)
		color := drawing.Color{R: c[0], G: c[1], B: c[2], A: 255}
		bars = append(bars, chart.Value{
			Label: r.State,
			Value: r.TotalRounded,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	// A zero range cannot be drawn
	top := calculator.Round2(calculator.MaxTotal(rows))
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    max(640, 24*len(rows)+160),
		Height:   480,
		BarWidth: 16,
		XAxis:    chart.Style{TextRotationDegrees: 90},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
