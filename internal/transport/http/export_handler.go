package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"tradepulse/internal/analytics"
	"tradepulse/internal/dataset"
	apierrors "tradepulse/internal/errors"
	"tradepulse/internal/exporter"
	"tradepulse/internal/services"
)

// ExportHandler streams pipeline outputs as CSV or XLSX downloads.
type ExportHandler struct {
	service      PipelineServiceInterface
	csv          *exporter.CSVWriter
	xlsx         *exporter.XLSXWriter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler
func NewExportHandler(service PipelineServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		csv:          exporter.NewCSVWriter(logger),
		xlsx:         exporter.NewXLSXWriter(logger),
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/table", h.Table)
	r.Post("/aggregate", h.Aggregate)
	r.Post("/pivot", h.Pivot)
	r.Post("/derive", h.Derive)

	return r
}

// Aggregate handles POST /api/export/aggregate with the aggregate request as
// JSON body.
func (h *ExportHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
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

	setDownloadHeaders(w, "aggregate.csv", csvContentType)
	if err := h.csv.WriteAggregate(w, result); err != nil {
		h.logger.ErrorContext(r.Context(), "export failed", slog.String("error", err.Error()))
	}
}

// Table handles GET /api/export/table?format=csv|xlsx&filters={...}.
func (h *ExportHandler) Table(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	table, err := h.service.Table(sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	switch format(r) {
	case "xlsx":
		setDownloadHeaders(w, "trade_data.xlsx", xlsxContentType)
		err = h.xlsx.WriteTable(w, table, "Data")
	default:
		setDownloadHeaders(w, "trade_data.csv", csvContentType)
		err = h.csv.WriteTable(w, table)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed", slog.String("error", err.Error()))
	}
}

// Pivot handles POST /api/export/pivot with the pivot request as JSON body.
func (h *ExportHandler) Pivot(w http.ResponseWriter, r *http.Request) {
	var req services.PivotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	pivot, err := h.service.Pivot(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	switch format(r) {
	case "xlsx":
		setDownloadHeaders(w, "pivot.xlsx", xlsxContentType)
		err = h.xlsx.WritePivot(w, pivot, "Pivot")
	default:
		setDownloadHeaders(w, "pivot.csv", csvContentType)
		err = h.csv.WritePivot(w, pivot)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed", slog.String("error", err.Error()))
	}
}

// Derive handles POST /api/export/derive: runs the derivation and streams
// its CSV rendering.
func (h *ExportHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req services.DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	result, err := h.service.Derive(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s.csv", result.Kind)
	switch v := result.Result.(type) {
	case analytics.ForecastResult:
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WriteForecast(w, &v)
	case analytics.AlertsResult:
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WriteAlerts(w, &v)
	case analytics.OutlierResult:
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WriteOutliers(w, &v)
	case analytics.ExtrapolationResult:
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WriteExtrapolation(w, &v)
	case analytics.DecompositionResult:
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WriteDecomposition(w, &v)
	case analytics.ClusterResult:
		order := make([]string, 0, len(v.Assignments))
		for category := range v.Assignments {
			order = append(order, category)
		}
		sort.Strings(order)
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WriteClusters(w, &v, order)
	case *dataset.Pivot:
		setDownloadHeaders(w, filename, csvContentType)
		err = h.csv.WritePivot(w, v)
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind",
			fmt.Sprintf("derivation %q has no CSV rendering", result.Kind)))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed", slog.String("error", err.Error()))
	}
}

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func format(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	return "csv"
}

func setDownloadHeaders(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
