package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// HistoryRepository provides the transaction_history operations behind the
// backend functions.
type HistoryRepository interface {
	// InsertHistory appends one row. Nothing is deduplicated.
	InsertHistory(ctx context.Context, row *HistoryRow) error

	// QueryHistory returns rows matching q, newest first.
	QueryHistory(ctx context.Context, q HistoryQuery) ([]*HistoryRow, error)

	// SummarizeHistory aggregates every row matching q per calendar day,
	// ignoring q.Limit.
	SummarizeHistory(ctx context.Context, q HistoryQuery) ([]*DailyTotalRow, error)

	// QueryTableRows is the raw table read used by the client fallback path.
	// It applies the date range and limit but never the phone filter.
	QueryTableRows(ctx context.Context, q HistoryQuery) ([]*HistoryRow, error)

	// DeleteHistory removes every row matching f and returns the count.
	DeleteHistory(ctx context.Context, f DeleteFilter) (int64, error)

	// PreviewDelete counts the rows DeleteHistory would remove for f and
	// returns up to sampleLimit of them.
	PreviewDelete(ctx context.Context, f DeleteFilter, sampleLimit int) (int64, []*HistoryRow, error)
}

// ExportRepository provides daily_exports operations.
type ExportRepository interface {
	// InsertExport records a finished (or failed) export.
	InsertExport(ctx context.Context, row *ExportRow) error

	// ListExports returns the most recent exports first.
	ListExports(ctx context.Context, limit int) ([]*ExportRow, error)
}

// HistoryRow represents a transaction_history record in BigQuery.
type HistoryRow struct {
	ID              string              `bigquery:"id"`               // REQUIRED
	PhoneNumber     string              `bigquery:"phone_number"`     // REQUIRED
	Amount          *big.Rat            `bigquery:"amount"`           // REQUIRED NUMERIC, major units
	TransactionID   string              `bigquery:"transaction_id"`   // REQUIRED
	TransactionDate time.Time           `bigquery:"transaction_date"` // REQUIRED TIMESTAMP
	Description     bigquery.NullString `bigquery:"description"`      // NULLABLE
	SourceType      bigquery.NullString `bigquery:"source_type"`      // NULLABLE
	CreatedAt       time.Time           `bigquery:"created_at"`       // REQUIRED
}

// DailyTotalRow is one bucket of SummarizeHistory.
type DailyTotalRow struct {
	Day   civil.Date `bigquery:"day"`
	Total *big.Rat   `bigquery:"total"`
	Count int64      `bigquery:"record_count"`
}

// ExportRow represents a daily_exports record in BigQuery.
type ExportRow struct {
	ID          string              `bigquery:"id"`
	ExportDate  civil.Date          `bigquery:"export_date"`
	FileURL     string              `bigquery:"file_url"`
	FileName    string              `bigquery:"file_name"`
	RecordCount int64               `bigquery:"record_count"`
	Status      string              `bigquery:"status"`
	Error       bigquery.NullString `bigquery:"error"`
	CreatedAt   time.Time           `bigquery:"created_at"`
}

// HistoryQuery filters history reads. Nil dates and an empty phone number
// mean no filter; Limit <= 0 means no limit.
type HistoryQuery struct {
	StartDate   *civil.Date
	EndDate     *civil.Date
	PhoneNumber string
	Limit       int
}

// DeleteFilter targets rows for deletion: exact source_type match and, when
// SearchTerm is set, a case-insensitive substring match on description.
type DeleteFilter struct {
	SourceType string
	SearchTerm string
}
