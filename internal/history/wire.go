package history

import (
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// Row is a transaction_history row as the backend functions serialize it.
type Row struct {
	ID              string          `json:"id"`
	PhoneNumber     string          `json:"phone_number"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionID   string          `json:"transaction_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Description     string          `json:"description"`
	SourceType      string          `json:"source_type"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Record converts the row into its domain form without any derivation.
func (r Row) Record() domain.HistoryRecord {
	return domain.HistoryRecord{
		ID: r.ID,
		NormalizedTransaction: domain.NormalizedTransaction{
			PhoneNumber:     r.PhoneNumber,
			Amount:          r.Amount,
			TransactionID:   r.TransactionID,
			TransactionTime: r.TransactionDate,
			Description:     r.Description,
			SourceType:      domain.SourceType(r.SourceType),
		},
		CreatedAt: r.CreatedAt,
	}
}

// SaveResponse is the body of save-transaction-history.
type SaveResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GetResponse is the body of get-transaction-history. A successful body
// always carries data with a transactions array, empty or not.
type GetResponse struct {
	Data  *GetData `json:"data"`
	Error string   `json:"error,omitempty"`
}

// GetData holds the rows and summary of a get-transaction-history answer.
type GetData struct {
	Transactions []Row          `json:"transactions"`
	Summary      domain.Summary `json:"summary"`
}

// ClearRequest is the body of clear-transfer-search-history.
type ClearRequest struct {
	SourceType string `json:"sourceType"`
	SearchTerm string `json:"searchTerm,omitempty"`
}

// ClearResult is the response of clear-transfer-search-history.
type ClearResult struct {
	DeletedCount int64  `json:"deletedCount"`
	Message      string `json:"message"`
}

// PreviewResult is the response of preview-delete-history.
type PreviewResult struct {
	TotalCount int64 `json:"totalCount"`
	Samples    []Row `json:"samples"`
}

// ExportRequest asks the backend to build a daily export.
type ExportRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Format string `json:"format,omitempty"`
}

// ExportAccepted is returned when an export job was queued.
type ExportAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ExportsResponse lists export records.
type ExportsResponse struct {
	Exports []domain.ExportRecord `json:"exports"`
	Count   int                   `json:"count"`
}

// PreviewSampleLimit caps the rows returned by preview-delete-history.
const PreviewSampleLimit = 50
