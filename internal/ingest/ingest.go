package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/database"
	"github.com/julienbonastre/betterbasket/internal/pricesheet"
	"github.com/rs/zerolog/log"
)

// Service loads the price sheet and records each attempt in load history
type Service struct {
	db     *database.DB
	client *pricesheet.Client
}

// NewService creates a new ingest service. db may be nil, in which case
// loads are not recorded.
func NewService(db *database.DB, client *pricesheet.Client) *Service {
	if client == nil {
		client = pricesheet.NewClient(pricesheet.Config{})
	}
	return &Service{db: db, client: client}
}

// Load reads the sheet at source, a local path or an http(s) URL. format
// overrides detection when set.
func (s *Service) Load(ctx context.Context, source string, format pricesheet.Format) (*calculator.PriceTable, error) {
	history := &database.LoadHistory{
		Source:    source,
		Format:    string(format),
		Status:    database.LoadRunning,
		StartedAt: time.Now(),
	}
	if err := s.record(history, true); err != nil {
		return nil, err
	}

	logger := log.With().Str("source", source).Logger()
	logger.Info().Msg("Loading price sheet")

	table, detected, err := s.read(ctx, source, format)
	now := time.Now()
	history.CompletedAt = &now
	history.Format = string(detected)
	if err != nil {
		history.Status = database.LoadFailed
		history.ErrorMessage = err.Error()
		logger.Error().Err(err).Msg("Price sheet load failed")
		if recErr := s.record(history, false); recErr != nil {
			logger.Error().Err(recErr).Msg("Failed to record load")
		}
		return nil, err
	}

	history.Status = database.LoadSuccess
	history.RowsLoaded = len(table.Regions)
	history.ItemsLoaded = len(table.Columns)
	if err := s.record(history, false); err != nil {
		return nil, err
	}

	logger.Info().
		Str("format", string(detected)).
		Int("regions", history.RowsLoaded).
		Int("items", history.ItemsLoaded).
		Dur("took", now.Sub(history.StartedAt)).
		Msg("Price sheet loaded")
	return table, nil
}

func (s *Service) read(ctx context.Context, source string, format pricesheet.Format) (*calculator.PriceTable, pricesheet.Format, error) {
	var (
		data []byte
		err  error
	)
	if pricesheet.IsRemote(source) {
		doc, fetchErr := s.client.Fetch(ctx, source)
		if fetchErr != nil {
			return nil, format, fetchErr
		}
		data = doc.Body
		if format == "" {
			format = doc.Format()
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, format, fmt.Errorf("failed to read sheet: %w", err)
		}
		if format == "" {
			format = pricesheet.DetectFormat(source, "")
		}
	}

	table, err := pricesheet.ParseBytes(data, format)
	if err != nil {
		return nil, format, fmt.Errorf("failed to parse %s sheet: %w", format, err)
	}
	return table, format, nil
}

func (s *Service) record(lh *database.LoadHistory, create bool) error {
	if s.db == nil {
		return nil
	}
	if create {
		if err := s.db.CreateLoadHistory(lh); err != nil {
			return fmt.Errorf("failed to create load history: %w", err)
		}
		return nil
	}
	if err := s.db.UpdateLoadHistory(lh); err != nil {
		return fmt.Errorf("failed to update load history: %w", err)
	}
	return nil
}
