package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/shopspring/decimal"
)

// NewHistoryRow builds the row stored for tx.
func NewHistoryRow(tx domain.NormalizedTransaction, id string, createdAt time.Time) *HistoryRow {
	return &HistoryRow{
		ID:              id,
		PhoneNumber:     tx.PhoneNumber,
		Amount:          RatFromDecimal(tx.Amount),
		TransactionID:   tx.TransactionID,
		TransactionDate: tx.TransactionTime.UTC(),
		Description:     nullString(tx.Description),
		SourceType:      nullString(string(tx.SourceType)),
		CreatedAt:       createdAt.UTC(),
	}
}

// Wire converts the row to the shape the backend functions return.
func (r *HistoryRow) Wire() history.Row {
	return history.Row{
		ID:              r.ID,
		PhoneNumber:     r.PhoneNumber,
		Amount:          DecimalFromRat(r.Amount),
		TransactionID:   r.TransactionID,
		TransactionDate: r.TransactionDate,
		Description:     r.Description.StringVal,
		SourceType:      r.SourceType.StringVal,
		CreatedAt:       r.CreatedAt,
	}
}

// WireRows converts rows, never returning nil.
func WireRows(rows []*HistoryRow) []history.Row {
	out := make([]history.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Wire())
	}
	return out
}

// Summary folds per-day buckets into a domain.Summary. Buckets keep the
// order they were queried in.
func Summary(days []*DailyTotalRow) domain.Summary {
	sum := domain.Summary{
		TotalAmount: decimal.Zero,
		DailyTotals: make([]domain.DailyTotal, 0, len(days)),
	}
	for _, d := range days {
		total := DecimalFromRat(d.Total)
		sum.TotalTransactions += int(d.Count)
		sum.TotalAmount = sum.TotalAmount.Add(total)
		sum.DailyTotals = append(sum.DailyTotals, domain.DailyTotal{
			Date:  d.Day.String(),
			Total: total,
			Count: int(d.Count),
		})
	}
	return sum
}

// Domain converts the export row for API responses.
func (e *ExportRow) Domain() domain.ExportRecord {
	return domain.ExportRecord{
		ID:          e.ID,
		ExportDate:  e.ExportDate.String(),
		FileURL:     e.FileURL,
		FileName:    e.FileName,
		RecordCount: int(e.RecordCount),
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
	}
}

// CivilDate converts a calendar date parsed from a filter.
func CivilDate(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := civil.DateOf(*t)
	return &d
}

// RatFromDecimal converts to the NUMERIC representation.
func RatFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

// DecimalFromRat converts a NUMERIC value; nil becomes zero.
func DecimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
