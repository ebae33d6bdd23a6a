package main

import (
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/dashboard"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestRenderTable(t *testing.T) {
	d := decimal.RequireFromString
	table := &calculator.PriceTable{
		Columns: []string{"Turkey"},
		Regions: []calculator.Region{
			{State: "CA", Retailer: "Safeway", Prices: map[string]decimal.Decimal{"Turkey": d("1027.86")}},
			{State: "TX", Retailer: "H-E-B", Prices: map[string]decimal.Decimal{"Turkey": d("20")}},
		},
	}
	view := dashboard.Build(table, calculator.DefaultSnapshot(), dashboard.DefaultSettings())

	out := renderTable(view.Table)
	assert.Contains(t, out, "Grocery Store")
	assert.Contains(t, out, "$1,027.86")
	assert.Contains(t, out, "H-E-B")
	assert.Contains(t, out, "$20.00")
}

func TestSnapshotFromContext(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range selectionFlags() {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--private-label", "--exclude", "Turkey", "-x", "Pie"}))

	snap := snapshotFromContext(cli.NewContext(cli.NewApp(), set, nil))
	assert.True(t, snap.PrivateLabel)
	assert.False(t, snap.IsIncluded("Turkey"))
	assert.False(t, snap.IsIncluded("Pie"))
	assert.True(t, snap.IsIncluded("Stuffing"))
}

func TestSelectionLine(t *testing.T) {
	assert.Equal(t, "Basket: regular prices, all items included", selectionLine(calculator.DefaultSnapshot()))

	snap := calculator.DefaultSnapshot().With("Turkey", false).With("Pie", false).With("Rolls", true)
	snap.PrivateLabel = true
	assert.Equal(t, "Basket: private-label prices, excluding Pie, Turkey", selectionLine(snap))
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	sheet := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(sheet, []byte("State,Grocery Store,Latitude,Longitude,Turkey\nCA,Safeway,36.7,-119.4,27.86\n"), 0o644))
	out := filepath.Join(dir, "basket.csv")

	app := &cli.App{
		Flags:    []cli.Flag{&cli.StringFlag{Name: "sheet"}, &cli.StringFlag{Name: "sheet-format"}},
		Commands: []*cli.Command{exportCommand()},
	}
	require.NoError(t, app.Run([]string{"betterbasket", "--sheet", sheet, "export", "--out", out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "State,Grocery Store,Total Cost,Turkey\nCA,Safeway,$27.86,$27.86\n", string(data))
}

func TestRequestLogger(t *testing.T) {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
