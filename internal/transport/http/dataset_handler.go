package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tradepulse/internal/dataset"
	apierrors "tradepulse/internal/errors"
)

// DatasetHandler handles dataset lifecycle requests: upload, remote load,
// preview, filter options and reset.
type DatasetHandler struct {
	service        PipelineServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewDatasetHandler creates a new dataset handler with RFC 7807 error handling
func NewDatasetHandler(service PipelineServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Upload)
	r.Post("/remote", h.LoadRemote)
	r.Get("/", h.Info)
	r.Delete("/", h.Reset)
	r.Get("/preview", h.Preview)
	r.Get("/options", h.Options)

	return r
}

// Upload handles POST /api/dataset with a multipart file field named "file".
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file upload named \"file\" is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "dataset upload",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	info, err := h.service.LoadUpload(r.Context(), file, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// remoteLoadRequest is the JSON body for POST /api/dataset/remote.
type remoteLoadRequest struct {
	URL   string `json:"url"`
	Sheet string `json:"sheet"`
}

// LoadRemote handles POST /api/dataset/remote.
func (h *DatasetHandler) LoadRemote(w http.ResponseWriter, r *http.Request) {
	var req remoteLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if req.URL == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("url", "A source URL is required"))
		return
	}

	h.logger.InfoContext(r.Context(), "remote dataset load",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("url", req.URL),
		slog.String("sheet", req.Sheet))

	info, err := h.service.LoadRemote(r.Context(), req.URL, req.Sheet)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// Info handles GET /api/dataset.
func (h *DatasetHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// Reset handles DELETE /api/dataset.
func (h *DatasetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset(r.Context())
	h.logger.InfoContext(r.Context(), "dataset reset",
		slog.String("request_id", middleware.GetReqID(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

// previewResponse is the JSON shape for GET /api/dataset/preview.
type previewResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Preview handles GET /api/dataset/preview?limit=n.
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	table, err := h.service.Preview(limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := previewResponse{Columns: table.Columns(), Rows: make([][]string, 0, table.Len())}
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		resp.Rows = append(resp.Rows, cells)
	}
	render.JSON(w, r, resp)
}

// Options handles GET /api/dataset/options.
func (h *DatasetHandler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, opts)
}

// parseSelection decodes the filters query parameter, a JSON object mapping
// column names to selected values. Absent means no restriction.
func parseSelection(r *http.Request) (dataset.Selection, error) {
	raw := r.URL.Query().Get("filters")
	if raw == "" {
		return nil, nil
	}
	var sel dataset.Selection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return nil, apierrors.ErrValidation("filters", "filters must be a JSON object of column to value list")
	}
	return sel, nil
}
