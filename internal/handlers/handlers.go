package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/dashboard"
	"github.com/julienbonastre/betterbasket/internal/database"
	"github.com/julienbonastre/betterbasket/internal/export"
	"github.com/rs/zerolog/log"
)

const (
	// SessionName is the cookie holding the viewer's session
	SessionName = "betterbasket"
	// selectionKey holds the JSON encoded snapshot in the session
	selectionKey = "selection"
	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 64 << 10
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	table *calculator.PriceTable
	db    *database.DB
	store sessions.Store
}

// NewHandler creates a new handler. db and store may be nil; the selection
// then lives only in the query string and settings use their defaults.
func NewHandler(table *calculator.PriceTable, db *database.DB, store sessions.Store) *Handler {
	return &Handler{table: table, db: db, store: store}
}

// Routes mounts the API
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Get("/catalog", h.GetCatalog)
	r.Get("/basket", h.GetBasket)
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.PutSelection)
	r.Delete("/selection", h.ResetSelection)
	r.Get("/export.xlsx", h.Export(export.FormatXLSX))
	r.Get("/export.csv", h.Export(export.FormatCSV))
	r.Get("/chart.png", h.Export(export.FormatPNG))
	r.Get("/loads", h.GetLoadHistory)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings/{key}", h.UpdateSetting)
	return r
}

// JSON response helper
func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON")
	}
}

// Error response helper
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeBody reads a JSON request body of at most maxBodyBytes
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	errorResponse(w, http.StatusBadRequest, "Invalid request body")
}

// HealthCheck returns API health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"regions":  len(h.table.Regions),
		"items":    len(h.table.Columns),
		"sessions": h.store != nil,
	})
}

// GetCatalog returns the item catalog of the loaded sheet
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	cat := h.table.Catalog()
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"columns":      h.table.Columns,
		"regular":      cat.Regular,
		"privateLabel": cat.PrivateLabel,
		"regions":      len(h.table.Regions),
	})
}

// GetBasket returns the dashboard view. The snapshot comes from the query
// (privateLabel, repeated exclude) or, when the query has neither, from the
// viewer's session.
func (h *Handler) GetBasket(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, h.view(snap))
}

// GetSelection returns the snapshot stored in the viewer's session
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.sessionSnapshot(r))
}

// PutSelection replaces the session snapshot and returns the recomputed view
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	var snap calculator.Snapshot
	if err := decodeBody(w, r, &snap); err != nil {
		bodyError(w, err)
		return
	}

	if err := h.saveSnapshot(w, r, snap); err != nil {
		log.Error().Err(err).Msg("Failed to save selection")
		errorResponse(w, http.StatusInternalServerError, "Failed to save selection")
		return
	}
	jsonResponse(w, http.StatusOK, h.view(snap))
}

// ResetSelection drops the viewer's session
func (h *Handler) ResetSelection(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		session, err := h.store.Get(r, SessionName)
		if err == nil {
			session.Options.MaxAge = -1
			err = session.Save(r, w)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to reset selection")
			errorResponse(w, http.StatusInternalServerError, "Failed to reset selection")
			return
		}
	}
	jsonResponse(w, http.StatusOK, h.view(calculator.DefaultSnapshot()))
}

// Export serves the summary for the current snapshot as a download
func (h *Handler) Export(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.snapshot(r)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, h.view(snap)); err != nil {
			log.Error().Err(err).Str("format", string(format)).Msg("Export failed")
			errorResponse(w, http.StatusInternalServerError, "Export failed")
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if format != export.FormatPNG {
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="basket.%s"`, format))
		}
		if _, err := buf.WriteTo(w); err != nil {
			log.Warn().Err(err).Str("format", string(format)).Msg("Export write interrupted")
		}
	}
}

// GetLoadHistory returns recent price sheet loads
func (h *Handler) GetLoadHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	history := []database.LoadHistory{}
	if h.db != nil {
		var err error
		history, err = h.db.GetLoadHistory(limit)
		if err != nil {
			log.Error().Err(err).Msg("GetLoadHistory error")
			errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"total":   len(history),
	})
}

// GetSettings returns the stored settings and the effective page settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	stored := []database.Setting{}
	if h.db != nil {
		var err error
		stored, err = h.db.GetAllSettings()
		if err != nil {
			log.Error().Err(err).Msg("GetSettings error")
			errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"settings":  stored,
		"effective": h.settings(),
	})
}

// UpdateSetting changes one stored setting
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Settings are not stored")
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		bodyError(w, err)
		return
	}

	key := chi.URLParam(r, "key")
	existing, err := h.db.GetSetting(key)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		errorResponse(w, http.StatusNotFound, "Unknown setting: "+key)
		return
	}
	if existing.DataType == "float" {
		if _, err := strconv.ParseFloat(req.Value, 64); err != nil {
			errorResponse(w, http.StatusBadRequest, "Value must be a number")
			return
		}
	}

	if err := h.db.UpdateSetting(key, req.Value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("UpdateSetting error")
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info().Str("key", key).Str("value", req.Value).Msg("Setting updated")
	jsonResponse(w, http.StatusOK, h.settings())
}

func (h *Handler) view(snap calculator.Snapshot) dashboard.View {
	return dashboard.Build(h.table, snap, h.settings())
}

func (h *Handler) settings() dashboard.Settings {
	if h.db == nil {
		return dashboard.DefaultSettings()
	}
	m, err := h.db.SettingsMap()
	if err != nil {
		log.Warn().Err(err).Msg("Using default settings")
		return dashboard.DefaultSettings()
	}
	return dashboard.SettingsFromMap(m)
}

// snapshot resolves the selection for a read request
func (h *Handler) snapshot(r *http.Request) (calculator.Snapshot, error) {
	q := r.URL.Query()
	_, hasToggle := q["privateLabel"]
	_, hasExclude := q["exclude"]
	if !hasToggle && !hasExclude {
		return h.sessionSnapshot(r), nil
	}

	snap := calculator.DefaultSnapshot()
	if hasToggle {
		v, err := strconv.ParseBool(q.Get("privateLabel"))
		if err != nil {
			return snap, fmt.Errorf("invalid privateLabel: %q", q.Get("privateLabel"))
		}
		snap.PrivateLabel = v
	}
	for _, label := range q["exclude"] {
		snap = snap.With(label, false)
	}
	return snap, nil
}

func (h *Handler) sessionSnapshot(r *http.Request) calculator.Snapshot {
	snap := calculator.DefaultSnapshot()
	if h.store == nil {
		return snap
	}
	session, err := h.store.Get(r, SessionName)
	if err != nil {
		return snap
	}
	raw, ok := session.Values[selectionKey].(string)
	if !ok {
		return snap
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		log.Debug().Err(err).Msg("Ignoring malformed session selection")
		return calculator.DefaultSnapshot()
	}
	return snap
}

func (h *Handler) saveSnapshot(w http.ResponseWriter, r *http.Request, snap calculator.Snapshot) error {
	if h.store == nil {
		return nil
	}
	session, err := h.store.Get(r, SessionName)
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	session.Values[selectionKey] = string(data)
	return session.Save(r, w)
}
