package history

import (
	"sort"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// Summarize computes totals and per-day buckets over records. Buckets are
// keyed by the calendar date of the transaction time and sorted newest first.
func Summarize(records []domain.HistoryRecord) domain.Summary {
	sum := domain.Summary{
		TotalTransactions: len(records),
		TotalAmount:       decimal.Zero,
		DailyTotals:       []domain.DailyTotal{},
	}

	index := make(map[string]int)
	for _, r := range records {
		sum.TotalAmount = sum.TotalAmount.Add(r.Amount)

		date := r.TransactionTime.Format(domain.DateLayout)
		i, ok := index[date]
		if !ok {
			i = len(sum.DailyTotals)
			index[date] = i
			sum.DailyTotals = append(sum.DailyTotals, domain.DailyTotal{Date: date, Total: decimal.Zero})
		}
		sum.DailyTotals[i].Total = sum.DailyTotals[i].Total.Add(r.Amount)
		sum.DailyTotals[i].Count++
	}

	sort.Slice(sum.DailyTotals, func(a, b int) bool {
		return sum.DailyTotals[a].Date > sum.DailyTotals[b].Date
	})
	return sum
}
