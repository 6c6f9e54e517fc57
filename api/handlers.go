/*
handlers.go - HTTP API handlers for the depreciation engine

PURPOSE:
  Exposes fixed assets, their depreciation schedules and the fiscal
  calendar via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to fixedasset.Service.

ENDPOINTS:
  Assets:
    GET    /api/assets                     List all assets
    POST   /api/assets                     Create asset from JSON
    GET    /api/assets/{id}                Get asset
    PUT    /api/assets/{id}                Update asset (fields absent from
                                           the body keep their value)
    POST   /api/assets/{id}/depreciate     Force schedule recomputation
    GET    /api/assets/{id}/schedule       Stored schedule
    GET    /api/assets/{id}/valuation?on=  Net book value on a day

  Fiscal years:
    GET    /api/fiscal-years               List fiscal years
    POST   /api/fiscal-years               Open a fiscal year
    POST   /api/fiscal-years/{id}/close    Close and lock its periods

  Tools:
    GET    /api/duration?start=&stop=&mode= 30/360 day count

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    GET    /api/scenarios/current          Currently loaded scenario
    POST   /api/scenarios/load             Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON {error, details, fields} with status:
  - 400: Validation errors, invalid input, engine precondition failures
  - 404: Asset or fiscal year not found
  - 409: Fiscal year would break calendar contiguity
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/factory"
	"github.com/warp/depreciation-engine/fixedasset"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears every stored record. Scenarios start from an empty store.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *fixedasset.Service
	Factory *factory.AssetFactory
	Store   Resetter
	Logger  *zap.Logger

	// now returns the current day; valuation defaults to it
	now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(svc *fixedasset.Service, store Resetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service: svc,
		Factory: factory.NewAssetFactory(),
		Store:   store,
		Logger:  logger,
		now:     time.Now,
	}
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// ListAssets returns all assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Service.ListAssets(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list assets", err)
		return
	}

	dtos := make([]AssetDTO, len(assets))
	for i, a := range assets {
		dtos[i] = toAssetDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAsset returns a single asset.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.Service.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(*asset))
}

// CreateAsset creates an asset from its JSON definition and computes its
// schedule.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req factory.AssetJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asset, err := h.Factory.FromJSON(req)
	if err != nil {
		h.writeServiceError(w, "Invalid asset", err)
		return
	}

	saved, periods, err := h.Service.Save(r.Context(), *asset)
	if err != nil {
		h.writeServiceError(w, "Failed to create asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, AssetWithScheduleDTO{
		Asset:    toAssetDTO(*saved),
		Schedule: toScheduleDTO(saved.ID, periods),
	})
}

// UpdateAsset applies the request body over the stored asset. The schedule
// is regenerated only when a depreciation input changed.
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.Service.GetAsset(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to get asset", err)
		return
	}

	req := h.Factory.ToJSON(*existing)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id

	asset, err := h.Factory.FromJSON(req)
	if err != nil {
		h.writeServiceError(w, "Invalid asset", err)
		return
	}

	saved, periods, err := h.Service.Save(r.Context(), *asset)
	if err != nil {
		h.writeServiceError(w, "Failed to update asset", err)
		return
	}

	writeJSON(w, http.StatusOK, AssetWithScheduleDTO{
		Asset:    toAssetDTO(*saved),
		Schedule: toScheduleDTO(saved.ID, periods),
	})
}

// DepreciateAsset forces a schedule recomputation.
func (h *Handler) DepreciateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	periods, err := h.Service.Recompute(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to depreciate asset", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(id, periods))
}

// GetSchedule returns the stored schedule of an asset.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	periods, err := h.Service.Schedule(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to get schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(id, periods))
}

// GetValuation returns the book position of an asset on ?on= (default today).
func (h *Handler) GetValuation(w http.ResponseWriter, r *http.Request) {
	on := depreciation.DateOf(h.now())
	if raw := r.URL.Query().Get("on"); raw != "" {
		parsed, err := depreciation.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid on (use YYYY-MM-DD)", err)
			return
		}
		on = parsed
	}

	v, err := h.Service.Valuation(r.Context(), chi.URLParam(r, "id"), on)
	if err != nil {
		h.writeServiceError(w, "Failed to value asset", err)
		return
	}

	dto := ValuationDTO{
		AssetID:            v.AssetID,
		On:                 v.On,
		DepreciableAmount:  v.DepreciableAmount,
		AlreadyDepreciated: v.AlreadyDepreciated,
		NetBookValue:       v.NetBookValue,
	}
	if v.Period != nil {
		p := toPeriodDTO(*v.Period)
		dto.Period = &p
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// FISCAL YEAR HANDLERS
// =============================================================================

// ListFiscalYears returns the fiscal calendar.
func (h *Handler) ListFiscalYears(w http.ResponseWriter, r *http.Request) {
	fys, err := h.Service.ListFiscalYears(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list fiscal years", err)
		return
	}

	dtos := make([]FiscalYearDTO, len(fys))
	for i, fy := range fys {
		dtos[i] = toFiscalYearDTO(fy)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFiscalYear opens a new fiscal year.
func (h *Handler) CreateFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req CreateFiscalYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	fy, err := h.Service.OpenFiscalYear(r.Context(), req.StartedOn, req.StoppedOn)
	if err != nil {
		h.writeServiceError(w, "Failed to create fiscal year", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFiscalYearDTO(*fy))
}

// CloseFiscalYear closes a fiscal year and locks the periods it covers.
func (h *Handler) CloseFiscalYear(w http.ResponseWriter, r *http.Request) {
	fy, locked, err := h.Service.CloseFiscalYear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to close fiscal year", err)
		return
	}
	writeJSON(w, http.StatusOK, CloseFiscalYearResponse{
		FiscalYear:    toFiscalYearDTO(*fy),
		PeriodsLocked: locked,
	})
}

// =============================================================================
// TOOLS
// =============================================================================

// GetDuration returns the 30/360 day count between two dates.
// GET /api/duration?start=2024-01-01&stop=2024-12-31&mode=linear
func (h *Handler) GetDuration(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := depreciation.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use YYYY-MM-DD)", err)
		return
	}
	stop, err := depreciation.ParseDate(q.Get("stop"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stop (use YYYY-MM-DD)", err)
		return
	}
	mode := depreciation.Method(q.Get("mode"))
	if mode == "" {
		mode = depreciation.MethodLinear
	}

	days, err := depreciation.CalendarDuration(start, stop, mode)
	if err != nil {
		h.writeServiceError(w, "Invalid duration request", err)
		return
	}
	writeJSON(w, http.StatusOK, DurationDTO{StartedOn: start, StoppedOn: stop, Mode: string(mode), Days: days})
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

// writeServiceError maps domain errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var verr *factory.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Details: err.Error(), Fields: verr.Fields})
	case fixedasset.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, fixedasset.ErrFiscalYearNotContiguous):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, factory.ErrInvalidAssetJSON),
		errors.Is(err, fixedasset.ErrInvalidAsset),
		depreciation.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
