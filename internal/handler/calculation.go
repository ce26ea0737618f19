package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/calc-tracker/internal/auth"
	"github.com/sakif/calc-tracker/internal/service"
)

// CalculationHandler exposes the calculation BREAD endpoints.
// All routes sit behind RequireAuth, so the user ID is always in the request
// context; it is threaded into every service call for owner scoping.
type CalculationHandler struct {
	svc    *service.CalculationService
	logger *slog.Logger
}

func NewCalculationHandler(svc *service.CalculationService, logger *slog.Logger) *CalculationHandler {
	return &CalculationHandler{svc: svc, logger: logger}
}

// createCalculationRequest is the POST body.
// Operands is a pointer-free slice: `{"type":"add","operands":[1,2]}`.
type createCalculationRequest struct {
	Type     string    `json:"type"`
	Operands []float64 `json:"operands"`
}

// updateCalculationRequest is the PUT body. Only operands are editable;
// the type tag is fixed at creation.
type updateCalculationRequest struct {
	Operands []float64 `json:"operands"`
}

// HandleCreate saves a new calculation.
//
// HTTP: POST /api/calculations
// Body: {"type": "divide", "operands": [10, 4]}
func (h *CalculationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createCalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid calculation JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be valid JSON",
		})
		return
	}

	calc, err := h.svc.Create(r.Context(), userID, req.Type, req.Operands)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, calc)
}

// HandleList returns the user's calculations, newest first.
//
// HTTP: GET /api/calculations?limit=20&offset=0
func (h *CalculationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	// Unparseable values fall back to the service defaults.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	calcs, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calcs)
}

// HandleGetByID returns a single calculation.
//
// HTTP: GET /api/calculations/{id}
func (h *CalculationHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	calc, err := h.svc.GetByID(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calc)
}

// HandleUpdate replaces a calculation's operands and recomputes the result.
//
// HTTP: PUT /api/calculations/{id}
// Body: {"operands": [10, 3, 2]}
func (h *CalculationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req updateCalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid calculation JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be valid JSON",
		})
		return
	}

	calc, err := h.svc.UpdateOperands(r.Context(), r.PathValue("id"), userID, req.Operands)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calc)
}

// HandleDelete removes a calculation.
//
// HTTP: DELETE /api/calculations/{id}
func (h *CalculationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.svc.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
