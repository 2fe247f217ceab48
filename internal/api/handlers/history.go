package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/api/middleware"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20

// HistoryHandler serves the transaction_history functions.
type HistoryHandler struct {
	repo       bq.HistoryRepository
	saveSchema *jsonschema.Schema
	log        zerolog.Logger
	now        func() time.Time
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(repo bq.HistoryRepository, log zerolog.Logger) (*HistoryHandler, error) {
	schema, err := compileSaveSchema()
	if err != nil {
		return nil, fmt.Errorf("NewHistoryHandler: %w", err)
	}
	return &HistoryHandler{
		repo:       repo,
		saveSchema: schema,
		log:        log,
		now:        time.Now,
	}, nil
}

// Save handles POST /functions/save-transaction-history.
// Every call appends a new row, even for a transaction ID already stored.
func (h *HistoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeSaveError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateJSON(h.saveSchema, raw); err != nil {
		writeSaveError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tx domain.NormalizedTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		writeSaveError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	row := bq.NewHistoryRow(tx, uuid.New().String(), h.now())
	if err := h.repo.InsertHistory(r.Context(), row); err != nil {
		h.log.Error().
			Err(err).
			Str("transaction_id", tx.TransactionID).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("Failed to insert transaction history")
		writeSaveError(w, http.StatusInternalServerError, "Failed to save transaction history")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, history.SaveResponse{Success: true, ID: row.ID})
}

func writeSaveError(w http.ResponseWriter, status int, message string) {
	middleware.WriteJSON(w, status, history.SaveResponse{Success: false, Error: message})
}

// Get handles GET /functions/get-transaction-history.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	q, err := historyQuery(params, "startDate", "endDate")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.PhoneNumber = params.Get("phoneNumber")
	if q.Limit, err = limitParam(params, "limit", defaultHistoryLimit, maxHistoryLimit); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.repo.QueryHistory(ctx, q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transaction history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transaction history")
		return
	}
	days, err := h.repo.SummarizeHistory(ctx, q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize transaction history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarize transaction history")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, history.GetResponse{
		Data: &history.GetData{
			Transactions: bq.WireRows(rows),
			Summary:      bq.Summary(days),
		},
	})
}

// Table handles GET /functions/tables/transaction_history, the raw table
// read behind the client fallback path. Returns a bare array.
func (h *HistoryHandler) Table(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	if order := params.Get("order"); order != "" && order != "transaction_date.desc" {
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported order: only transaction_date.desc")
		return
	}

	q, err := historyQuery(params, "start_date", "end_date")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Limit, err = limitParam(params, "limit", 0, 0); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.repo.QueryTableRows(r.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read transaction_history table")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read transaction history")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, bq.WireRows(rows))
}

func historyQuery(params url.Values, startName, endName string) (bq.HistoryQuery, error) {
	var q bq.HistoryQuery
	var err error
	if q.StartDate, err = dateParam(params, startName); err != nil {
		return q, err
	}
	if q.EndDate, err = dateParam(params, endName); err != nil {
		return q, err
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return q, fmt.Errorf("%s is before %s", endName, startName)
	}
	return q, nil
}

// Clear handles POST /functions/clear-transfer-search-history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req history.ClearRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !domain.SourceType(req.SourceType).Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "sourceType must be one of recent_transactions, transfer_search, dashboard_transactions")
		return
	}

	deleted, err := h.repo.DeleteHistory(r.Context(), bq.DeleteFilter{
		SourceType: req.SourceType,
		SearchTerm: req.SearchTerm,
	})
	if err != nil {
		h.log.Error().Err(err).Str("source_type", req.SourceType).Msg("Failed to clear history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	h.log.Info().
		Str("source_type", req.SourceType).
		Str("search_term", req.SearchTerm).
		Int64("deleted", deleted).
		Msg("Cleared transaction history")

	middleware.WriteJSON(w, http.StatusOK, history.ClearResult{
		DeletedCount: deleted,
		Message:      fmt.Sprintf("Deleted %d records", deleted),
	})
}

// Preview handles GET /functions/preview-delete-history.
func (h *HistoryHandler) Preview(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	sourceType := params.Get("sourceType")
	if !domain.SourceType(sourceType).Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "sourceType must be one of recent_transactions, transfer_search, dashboard_transactions")
		return
	}

	total, samples, err := h.repo.PreviewDelete(r.Context(), bq.DeleteFilter{
		SourceType: sourceType,
		SearchTerm: params.Get("searchTerm"),
	}, history.PreviewSampleLimit)
	if err != nil {
		h.log.Error().Err(err).Str("source_type", sourceType).Msg("Failed to preview delete")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to preview delete")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, history.PreviewResult{
		TotalCount: total,
		Samples:    bq.WireRows(samples),
	})
}
