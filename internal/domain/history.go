package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the wallet reports.
const Currency = "THB"

// BalanceSnapshot is held in memory for display and replaced on every fetch.
type BalanceSnapshot struct {
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	Currency       string          `json:"currency"`
	Timestamp      time.Time       `json:"timestamp"`
}

// HistoryFilter narrows a history query. Zero values mean "no filter".
type HistoryFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	PhoneNumber string
	Limit       int
}

// HistoryRecord is a stored NormalizedTransaction as returned by the backend.
type HistoryRecord struct {
	ID string `json:"id"`
	NormalizedTransaction
	CreatedAt time.Time `json:"createdAt"`
}

// DailyTotal aggregates the records of one calendar date.
type DailyTotal struct {
	Date  string          `json:"date"` // YYYY-MM-DD
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Summary aggregates a set of history records.
type Summary struct {
	TotalTransactions int             `json:"totalTransactions"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	DailyTotals       []DailyTotal    `json:"dailyTotals"`
}

// HistoryResult is what a history reader returns.
type HistoryResult struct {
	Records []HistoryRecord `json:"records"`
	Summary Summary         `json:"summary"`
}

// ExportRecord describes a daily export file. It is written by the export job.
type ExportRecord struct {
	ID          string    `json:"id"`
	ExportDate  string    `json:"exportDate"` // YYYY-MM-DD
	FileURL     string    `json:"fileUrl"`
	FileName    string    `json:"fileName"`
	RecordCount int       `json:"recordCount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// DateLayout is the calendar-date format used in filters, buckets and exports.
const DateLayout = "2006-01-02"
