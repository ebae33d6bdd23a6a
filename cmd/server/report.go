package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/dashboard"
	"github.com/julienbonastre/betterbasket/internal/export"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// selectionFlags describe a snapshot on the command line
func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "private-label",
			Aliases: []string{"p"},
			Usage:   "Price items from their private-label columns",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"x"},
			Usage:   "Leave an item out of the basket (repeatable)",
		},
	}
}

func snapshotFromContext(c *cli.Context) calculator.Snapshot {
	snap := calculator.DefaultSnapshot()
	snap.PrivateLabel = c.Bool("private-label")
	for _, label := range c.StringSlice("exclude") {
		snap = snap.With(label, false)
	}
	return snap
}

func buildView(c *cli.Context) (dashboard.View, error) {
	cfg := configFromContext(c)
	t, err := loadTable(c.Context, cfg, nil)
	if err != nil {
		return dashboard.View{}, err
	}
	return dashboard.Build(t, snapshotFromContext(c), dashboard.DefaultSettings()), nil
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Print the basket totals per region",
		Flags: selectionFlags(),
		Action: func(c *cli.Context) error {
			view, err := buildView(c)
			if err != nil {
				return err
			}
			fmt.Println(selectionLine(view.Snapshot))
			fmt.Println(renderTable(view.Table))
			return nil
		},
	}
}

// selectionLine names the pricing mode and the items left out of the basket
func selectionLine(snap calculator.Snapshot) string {
	mode := "regular prices"
	if snap.PrivateLabel {
		mode = "private-label prices"
	}
	excluded := snap.Excluded()
	if len(excluded) == 0 {
		return "Basket: " + mode + ", all items included"
	}
	return fmt.Sprintf("Basket: %s, excluding %s", mode, strings.Join(excluded, ", "))
}

// renderTable draws the summary table with the dashboard's heat-map colors
func renderTable(t dashboard.Table) string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cell.Text
		}
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	plain := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
				return plain
			}
			cs := t.Rows[row][col].Style
			if cs == nil {
				return plain
			}
			return plain.
				Align(lipgloss.Right).
				Background(lipgloss.Color(cs.Background)).
				Foreground(lipgloss.Color(cs.Color))
		}).
		String()
}

func exportCommand() *cli.Command {
	flags := append(selectionFlags(),
		&cli.StringFlag{
			Name:     "out",
			Aliases:  []string{"o"},
			Usage:    "Output file; the extension picks the format unless --format is set",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format (xlsx, csv, png)",
		},
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write the summary as a spreadsheet, CSV file or chart",
		Flags: flags,
		Action: func(c *cli.Context) error {
			out := c.String("out")
			name := c.String("format")
			if name == "" {
				name = filepath.Ext(out)
			}
			format, err := export.ParseFormat(name)
			if err != nil {
				return err
			}

			view, err := buildView(c)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := export.Write(f, format, view); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			log.Info().Str("out", out).Str("format", string(format)).Int("regions", len(view.Rows)).Msg("Export written")
			return nil
		},
	}
}
