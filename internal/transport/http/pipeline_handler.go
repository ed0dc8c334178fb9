package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tradepulse/internal/dataset"
	apierrors "tradepulse/internal/errors"
	"tradepulse/internal/services"
)

// PipelineHandler handles aggregation and derivation requests.
type PipelineHandler struct {
	service      PipelineServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPipelineHandler creates a new pipeline handler with RFC 7807 error handling
func NewPipelineHandler(service PipelineServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PipelineHandler {
	return &PipelineHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "pipeline_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the pipeline routes
func (h *PipelineHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/aggregate", h.Aggregate)
	r.Post("/pivot", h.Pivot)
	r.Post("/derive", h.Derive)

	return r
}

// Aggregate handles POST /api/pipeline/aggregate.
func (h *PipelineHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req services.AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	result, err := h.service.Aggregate(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, aggregateResponse(result))
}

// Pivot handles POST /api/pipeline/pivot.
func (h *PipelineHandler) Pivot(w http.ResponseWriter, r *http.Request) {
	var req services.PivotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	result, err := h.service.Pivot(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, pivotResponse(result))
}

// Derive handles POST /api/pipeline/derive.
func (h *PipelineHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req services.DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	h.logger.InfoContext(r.Context(), "derivation requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("kind", string(req.Kind)))

	result, err := h.service.Derive(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Pivot-shaped results go through the DTO so absent cells render null.
	if pivot, ok := result.Result.(*dataset.Pivot); ok {
		render.JSON(w, r, services.DeriveResult{Kind: result.Kind, Result: pivotResponse(pivot)})
		return
	}
	render.JSON(w, r, result)
}
