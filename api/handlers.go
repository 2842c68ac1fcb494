/*
handlers.go - HTTP API handlers for the census tracker

PURPOSE:
  Exposes the census core via REST API. Handles HTTP request/response and
  JSON serialization, and delegates every decision to census.Tracker.

ENDPOINTS:
  Districts:
    GET    /api/districts?region=R          List (optionally by region)
    POST   /api/districts                   Register district
    GET    /api/districts/{name}/summary    Latest-year summary
    POST   /api/districts/{name}/census     Record (or replace) a census year

  Regions:
    GET    /api/regions/{region}/report     Regional aggregate

  Store:
    GET    /api/status                      Counts and year range
    GET    /api/export                      Full dump

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, malformed body
  - 404: District not found, no census data
  - 409: Duplicate district
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/census-tracker/census"
	"github.com/warp/census-tracker/logging"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tracker *census.Tracker
	Logger  *logging.Logger
}

// NewHandler creates a new handler over the given tracker.
func NewHandler(tracker *census.Tracker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{Tracker: tracker, Logger: logger}
}

// =============================================================================
// DISTRICT HANDLERS
// =============================================================================

// ListDistricts returns all districts, or those of ?region=.
func (h *Handler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")

	districts, err := h.Tracker.ListDistricts(r.Context(), region)
	if err != nil {
		h.writeDomainError(w, "Failed to list districts", err)
		return
	}

	writeJSON(w, http.StatusOK, ListDistrictsResponse{
		Region:    region,
		Count:     len(districts),
		Districts: districts,
	})
}

// CreateDistrict registers a district.
func (h *Handler) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	var req CreateDistrictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	d, err := h.Tracker.AddDistrict(r.Context(), req.toInput())
	if err != nil {
		h.writeDomainError(w, "Failed to register district", err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// GetSummary returns the population summary of a district.
// GET /api/districts/{name}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s, err := h.Tracker.Summary(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, "Failed to summarize district", err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// RecordCensus records (or replaces) one census year of a district.
// POST /api/districts/{name}/census
func (h *Handler) RecordCensus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req RecordCensusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year == 0 {
		writeError(w, http.StatusBadRequest, "year is required", nil)
		return
	}

	rec, err := h.Tracker.RecordCensus(r.Context(), req.toInput(name))
	if err != nil {
		h.writeDomainError(w, "Failed to record census", err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// RegionalReport returns the aggregate of a region.
// GET /api/regions/{region}/report
func (h *Handler) RegionalReport(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	rep, err := h.Tracker.RegionalReport(r.Context(), region)
	if err != nil {
		h.writeDomainError(w, "Failed to build regional report", err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// Status returns store-wide counts.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Tracker.Status(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to read status", err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Export returns every district and record.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.Tracker.ExportAll(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to export", err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps census error kinds to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    census.Kind(err),
		Details: err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, census.ErrInvalidInput):
		return http.StatusBadRequest
	case census.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, census.ErrDuplicateDistrict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
