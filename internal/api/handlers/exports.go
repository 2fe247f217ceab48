package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/wallet-dashboard/internal/api/middleware"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/export"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/dvloznov/wallet-dashboard/internal/jobs"
	"github.com/rs/zerolog"
)

// ExportsHandler lists daily exports and queues new ones.
type ExportsHandler struct {
	repo      bq.ExportRepository
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExportsHandler creates a new exports handler. A nil publisher
// disables Create.
func NewExportsHandler(repo bq.ExportRepository, publisher jobs.Publisher, log zerolog.Logger) *ExportsHandler {
	return &ExportsHandler{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// List handles GET /functions/exports
func (h *ExportsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r.URL.Query(), "limit", 0, maxHistoryLimit)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.repo.ListExports(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list exports")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list exports")
		return
	}

	records := make([]domain.ExportRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Domain())
	}
	middleware.WriteJSON(w, http.StatusOK, history.ExportsResponse{
		Exports: records,
		Count:   len(records),
	})
}

// Create handles POST /functions/exports
func (h *ExportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Exports are disabled: no storage bucket configured")
		return
	}

	var req history.ExportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date is required as YYYY-MM-DD")
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.ExportDailyJob{
		Date:   date.String(),
		Format: string(format),
	}
	if err := h.publisher.PublishExportDaily(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("date", job.Date).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("date", job.Date).Str("format", job.Format).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, history.ExportAccepted{
		JobID:  job.JobID,
		Status: string(job.Status),
	})
}
