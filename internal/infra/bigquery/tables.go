package bigquery

import (
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
)

const (
	historyTable = "transaction_history"
	exportsTable = "daily_exports"

	// DefaultDataset is used when no dataset is configured.
	DefaultDataset = "wallet"
)

// Tables locates the wallet dataset.
type Tables struct {
	Project string
	Dataset string
}

func (t Tables) dataset() string {
	if t.Dataset == "" {
		return DefaultDataset
	}
	return t.Dataset
}

func (t Tables) qualified(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", t.Project, t.dataset(), table)
}

// History is the fully qualified transaction_history table name.
func (t Tables) History() string { return t.qualified(historyTable) }

// Exports is the fully qualified daily_exports table name.
func (t Tables) Exports() string { return t.qualified(exportsTable) }

// historyWhere builds the WHERE clause for history reads. Dates compare
// against the calendar date of transaction_date, inclusive on both ends.
func historyWhere(q bq.HistoryQuery, withPhone bool) (string, []bigquery.QueryParameter) {
	var (
		conds  []string
		params []bigquery.QueryParameter
	)
	if q.StartDate != nil {
		conds = append(conds, "DATE(transaction_date) >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: *q.StartDate})
	}
	if q.EndDate != nil {
		conds = append(conds, "DATE(transaction_date) <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: *q.EndDate})
	}
	if withPhone && q.PhoneNumber != "" {
		conds = append(conds, "phone_number = @phone_number")
		params = append(params, bigquery.QueryParameter{Name: "phone_number", Value: q.PhoneNumber})
	}
	return joinWhere(conds), params
}

// deleteWhere is shared by DeleteHistory and PreviewDelete so the preview
// always shows exactly what a delete would remove.
func deleteWhere(f bq.DeleteFilter) (string, []bigquery.QueryParameter) {
	conds := []string{"source_type = @source_type"}
	params := []bigquery.QueryParameter{{Name: "source_type", Value: f.SourceType}}

	if term := strings.TrimSpace(f.SearchTerm); term != "" {
		conds = append(conds, "STRPOS(LOWER(IFNULL(description, '')), LOWER(@search_term)) > 0")
		params = append(params, bigquery.QueryParameter{Name: "search_term", Value: term})
	}
	return joinWhere(conds), params
}

func joinWhere(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, "\n\t\t  AND ")
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", limit)
}
