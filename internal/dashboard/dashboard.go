// Package dashboard assembles everything the page renders for one
// interaction: sidebar state, map points, and the heat-mapped summary table.
// A View is rebuilt from the price table and a selection snapshot on every
// request.
package dashboard

import (
	"fmt"
	"strconv"

	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/mapstyle"
)

// Fixed table columns ahead of the item columns
const (
	ColumnState    = "State"
	ColumnRetailer = "Grocery Store"
	ColumnTotal    = "Total Cost"
)

// MapView is the initial camera of the map
type MapView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
	Style     string  `json:"mapStyle"`
}

// Settings holds page-level presentation settings
type Settings struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Map      MapView `json:"map"`
}

// DefaultSettings centres the map on the contiguous United States
func DefaultSettings() Settings {
	return Settings{
		Title:    "BetterBasket Interactive Holiday Meal Cost Map",
		Subtitle: "A visualization of total costs for Thanksgiving baskets based on most common grocery chain in the state",
		Map: MapView{
			Latitude:  37.0902,
			Longitude: -95.7129,
			Zoom:      4,
			Style:     "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json",
		},
	}
}

// SettingsFromMap overlays stored key/value settings on the defaults.
// Malformed numbers keep their default.
func SettingsFromMap(m map[string]string) Settings {
	s := DefaultSettings()
	if v := m["page.title"]; v != "" {
		s.Title = v
	}
	if v := m["page.subtitle"]; v != "" {
		s.Subtitle = v
	}
	if v := m["map.style"]; v != "" {
		s.Map.Style = v
	}
	floatSetting(m, "map.latitude", &s.Map.Latitude)
	floatSetting(m, "map.longitude", &s.Map.Longitude)
	floatSetting(m, "map.zoom", &s.Map.Zoom)
	floatSetting(m, "map.pitch", &s.Map.Pitch)
	floatSetting(m, "map.bearing", &s.Map.Bearing)
	return s
}

func floatSetting(m map[string]string, key string, dst *float64) {
	v, ok := m[key]
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*dst = f
}

// Checkbox is one item toggle in the sidebar
type Checkbox struct {
	Label        string `json:"label"`
	Column       string `json:"column"`
	PrivateLabel bool   `json:"privateLabel"`
	Checked      bool   `json:"checked"`
}

// Sidebar is the control panel state
type Sidebar struct {
	PrivateLabel    bool       `json:"privateLabel"`
	HasPrivateLabel bool       `json:"hasPrivateLabel"`
	Items           []Checkbox `json:"items"`
}

// Point is one region on the map: a scaled dot plus its cost label
type Point struct {
	State    string        `json:"state"`
	Retailer string        `json:"retailer"`
	Position [2]float64    `json:"position"` // longitude, latitude
	Color    mapstyle.RGBA `json:"color"`
	Radius   float64       `json:"radius"`
	Label    string        `json:"label"`
	Tooltip  string        `json:"tooltip"`
	Scale    float64       `json:"scale"`
}

// Cell is one summary table cell
type Cell struct {
	Text  string              `json:"text"`
	Value float64             `json:"value,omitempty"`
	Style *mapstyle.CellStyle `json:"style,omitempty"`
}

// Table is the detailed summary of each region's basket
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// View is the complete render model for one interaction
type View struct {
	Settings
	Snapshot calculator.Snapshot     `json:"snapshot"`
	Sidebar  Sidebar                 `json:"sidebar"`
	Points   []Point                 `json:"points"`
	Table    Table                   `json:"table"`
	Rows     []calculator.DerivedRow `json:"rows"`
}

// Build recomputes the view for a snapshot
func Build(table *calculator.PriceTable, snap calculator.Snapshot, settings Settings) View {
	cat := table.Catalog()
	sel := calculator.NewSelection(cat, snap)
	rows := calculator.Aggregate(table, sel)

	return View{
		Settings: settings,
		Snapshot: snap,
		Sidebar:  buildSidebar(cat, sel),
		Points:   buildPoints(rows),
		Table:    BuildTable(rows, sel),
		Rows:     rows,
	}
}

func buildSidebar(cat calculator.Catalog, sel calculator.SelectionSet) Sidebar {
	sb := Sidebar{
		PrivateLabel:    sel.PrivateLabel,
		HasPrivateLabel: len(cat.PrivateLabel) > 0,
		Items:           make([]Checkbox, 0, len(sel.Items)),
	}
	for _, item := range sel.Items {
		sb.Items = append(sb.Items, Checkbox{
			Label:        item.Label,
			Column:       item.Column,
			PrivateLabel: item.PrivateLabel(),
			Checked:      item.Included,
		})
	}
	return sb
}

func buildPoints(rows []calculator.DerivedRow) []Point {
	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, Point{
			State:    r.State,
			Retailer: r.Retailer,
			Position: [2]float64{r.Longitude, r.Latitude},
			Color:    mapstyle.PointColor(r.Scale),
			Radius:   mapstyle.PointRadius(r.Scale),
			Label:    r.CostText,
			Tooltip:  Tooltip(r),
			Scale:    r.Scale,
		})
	}
	return points
}

// Tooltip is the hover text for a region
func Tooltip(r calculator.DerivedRow) string {
	return fmt.Sprintf("%s (%s): %s", r.State, r.Retailer, r.CostText)
}

// BuildTable lays out the summary table: state, retailer, total, then one
// column per active item, with each money column heat-mapped on its own
// range
func BuildTable(rows []calculator.DerivedRow, sel calculator.SelectionSet) Table {
	t := Table{
		Columns: append([]string{ColumnState, ColumnRetailer, ColumnTotal}, sel.Columns()...),
		Rows:    make([][]Cell, len(rows)),
	}

	totals := make([]float64, len(rows))
	for i, r := range rows {
		totals[i] = r.TotalRounded
	}
	totalStyles := mapstyle.ColumnStyles(totals)

	itemStyles := make([][]mapstyle.CellStyle, len(sel.Items))
	for j := range sel.Items {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = r.Items[j].Price.InexactFloat64()
		}
		itemStyles[j] = mapstyle.ColumnStyles(values)
	}

	for i, r := range rows {
		cells := make([]Cell, 0, len(t.Columns))
		cells = append(cells,
			Cell{Text: r.State},
			Cell{Text: r.Retailer},
			Cell{Text: r.CostText, Value: r.TotalRounded, Style: &totalStyles[i]},
		)
		for j, item := range r.Items {
			cells = append(cells, Cell{
				Text:  item.Text,
				Value: calculator.Round2(item.Price),
				Style: &itemStyles[j][i],
			})
		}
		t.Rows[i] = cells
	}
	return t
}
