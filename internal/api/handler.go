package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"divcal/config"
	"divcal/internal/app"
	"divcal/models"
	"divcal/projector"
	"divcal/repository"
	"divcal/services"
	"divcal/templates"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleIndex serves the calendar page. HTMX requests get only the table.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.htmlError(w, err.Error(), http.StatusBadRequest, r)
		return
	}

	profiles, summary := h.app.Profiles(r.Context(), filter)
	if isHTMXRequest(r) {
		h.htmlResponse(w, templates.CatalogTable(profiles, summary), r)
		return
	}

	report, _ := h.app.Report(r.Context())
	h.htmlResponse(w, templates.Index(templates.IndexData{
		Profiles:   profiles,
		Summary:    summary,
		Query:      filter.Query,
		MinExDate:  r.URL.Query().Get("min_ex_date"),
		Report:     report,
		Glossary:   h.app.Glossary(),
		Disclaimer: app.Disclaimer,
	}), r)
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if h.app.Repo() != nil {
		ctx := r.Context()
		if err := h.app.Repo().Health(ctx); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	// Add circuit breaker status
	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// CatalogResponse is the filtered catalog with its headline figures
type CatalogResponse struct {
	BuiltAt  time.Time                `json:"built_at"`
	Profiles []models.DividendProfile `json:"profiles"`
	Summary  models.CatalogSummary    `json:"summary"`
}

// HandleGetDividends returns the filtered catalog. refresh=true rebuilds it.
func (h *Handler) HandleGetDividends(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	catalog, _ := h.app.Catalog(r.Context(), refresh)
	profiles := catalog.Filter(filter)

	h.jsonResponse(w, CatalogResponse{
		BuiltAt:  catalog.BuiltAt,
		Profiles: profiles,
		Summary:  models.Summarize(profiles),
	})
}

// HandleGetSummary returns the headline figures of the filtered catalog
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, summary := h.app.Profiles(r.Context(), filter)
	h.jsonResponse(w, summary)
}

// HandleExportCSV streams the filtered catalog as a CSV attachment
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf strings.Builder
	name, err := h.app.ExportCSV(r.Context(), &buf, filter)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	io.WriteString(w, buf.String())
}

// HandleGetDividend returns the profile of one symbol
func (h *Handler) HandleGetDividend(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.app.Profile(r.Context(), symbol)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, profile)
}

// SimulateResponse is a projection with the disclaimer attached
type SimulateResponse struct {
	Projection *models.Projection `json:"projection"`
	Disclaimer string             `json:"disclaimer"`
}

// HandleSimulate projects dividend earnings for a what-if investment
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req app.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))

	projection, err := h.app.Simulate(r.Context(), req)
	if err != nil {
		var ve *app.ValidationError
		if errors.As(err, &ve) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":  "validation failed",
				"fields": ve.Fields,
			})
			return
		}
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, SimulateResponse{Projection: projection, Disclaimer: app.Disclaimer})
}

// HandleGetReport returns the most recent batch report
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Report(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if report == nil {
		h.jsonError(w, "no catalog has been built yet", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, report)
}

// HandleGetReportHistory returns persisted batch reports, newest first
func (h *Handler) HandleGetReportHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.ParseLimitParam(r, 20)

	reports, err := h.app.ReportHistory(r.Context(), limit)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, reports)
}

// HandleGetGlossary returns the explained terms
func (h *Handler) HandleGetGlossary(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]interface{}{
		"terms":      h.app.Glossary(),
		"disclaimer": app.Disclaimer,
	})
}

// Helper functions

// isHTMXRequest checks if the request is from HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// templComponent matches the templ.Component interface
type templComponent interface {
	Render(ctx context.Context, w io.Writer) error
}

// htmlResponse renders a templ component as HTML
func (h *Handler) htmlResponse(w http.ResponseWriter, component templComponent, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	component.Render(r.Context(), w)
}

// htmlError renders an error state as HTML
func (h *Handler) htmlError(w http.ResponseWriter, message string, status int, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.ErrorState(message).Render(r.Context(), w)
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// parseFilter reads the q and min_ex_date query parameters
func parseFilter(r *http.Request) (models.CatalogFilter, error) {
	q := r.URL.Query()
	filter := models.CatalogFilter{Query: strings.TrimSpace(q.Get("q"))}

	if raw := q.Get("min_ex_date"); raw != "" {
		t, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid min_ex_date %q (expected YYYY-MM-DD)", raw)
		}
		filter.MinExDate = t
	}
	return filter, nil
}

// appError maps application errors to HTTP status codes
func (h *Handler) appError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidRequest), errors.Is(err, projector.ErrInvalidInput):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, app.ErrNotFound):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrNoDatabase):
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
