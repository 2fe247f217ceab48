package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"google.golang.org/api/iterator"
)

const historyColumns = `
			id,
			phone_number,
			amount,
			transaction_id,
			transaction_date,
			description,
			source_type,
			created_at`

// InsertHistoryWithClient appends one row to transaction_history with a DML
// INSERT. Rows written through the streaming inserter cannot be deleted by
// DeleteHistoryWithClient until the streaming buffer flushes; DML rows can.
func InsertHistoryWithClient(ctx context.Context, client *bigquery.Client, t Tables, row *bq.HistoryRow) error {
	if row == nil {
		return fmt.Errorf("InsertHistory: nil row")
	}

	sql, params := insertHistoryStatement(t, row)
	query := client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertHistory: run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertHistory: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertHistory: job error: %w", err)
	}
	return nil
}

func insertHistoryStatement(t Tables, row *bq.HistoryRow) (string, []bigquery.QueryParameter) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@id, @phone_number, @amount, @transaction_id, @transaction_date, @description, @source_type, @created_at)
	`, t.History(), historyColumns)

	return sql, []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "phone_number", Value: row.PhoneNumber},
		{Name: "amount", Value: row.Amount},
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "description", Value: row.Description},
		{Name: "source_type", Value: row.SourceType},
		{Name: "created_at", Value: row.CreatedAt},
	}
}

// QueryHistoryWithClient returns rows matching q ordered by transaction_date
// descending.
func QueryHistoryWithClient(ctx context.Context, client *bigquery.Client, t Tables, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
	where, params := historyWhere(q, true)
	rows, err := readHistoryRows(ctx, client, fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY transaction_date DESC, created_at DESC
		%s
	`, historyColumns, t.History(), where, limitClause(q.Limit)), params)
	if err != nil {
		return nil, fmt.Errorf("QueryHistory: %w", err)
	}
	return rows, nil
}

// QueryTableRowsWithClient is the raw read of the table: date range, order
// and limit only.
func QueryTableRowsWithClient(ctx context.Context, client *bigquery.Client, t Tables, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
	where, params := historyWhere(q, false)
	rows, err := readHistoryRows(ctx, client, fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY transaction_date DESC
		%s
	`, historyColumns, t.History(), where, limitClause(q.Limit)), params)
	if err != nil {
		return nil, fmt.Errorf("QueryTableRows: %w", err)
	}
	return rows, nil
}

// SummarizeHistoryWithClient groups all rows matching q (without limit) by
// calendar day, newest day first.
func SummarizeHistoryWithClient(ctx context.Context, client *bigquery.Client, t Tables, q bq.HistoryQuery) ([]*bq.DailyTotalRow, error) {
	where, params := historyWhere(q, true)
	query := client.Query(fmt.Sprintf(`
		SELECT
			DATE(transaction_date) AS day,
			SUM(amount) AS total,
			COUNT(*) AS record_count
		FROM %s
		%s
		GROUP BY day
		ORDER BY day DESC
	`, t.History(), where))
	query.Parameters = params

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SummarizeHistory: query read: %w", err)
	}

	var totals []*bq.DailyTotalRow
	for {
		var row bq.DailyTotalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SummarizeHistory: iter next: %w", err)
		}
		totals = append(totals, &row)
	}
	return totals, nil
}

// DeleteHistoryWithClient deletes the rows matching f and returns how many
// were removed.
func DeleteHistoryWithClient(ctx context.Context, client *bigquery.Client, t Tables, f bq.DeleteFilter) (int64, error) {
	where, params := deleteWhere(f)
	query := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		%s
	`, t.History(), where))
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteHistory: run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteHistory: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("DeleteHistory: job error: %w", err)
	}

	if status.Statistics == nil {
		return 0, nil
	}
	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}

// PreviewDeleteWithClient counts and samples the rows DeleteHistoryWithClient
// would remove for the same filter.
func PreviewDeleteWithClient(ctx context.Context, client *bigquery.Client, t Tables, f bq.DeleteFilter, sampleLimit int) (int64, []*bq.HistoryRow, error) {
	where, params := deleteWhere(f)

	countQuery := client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS total
		FROM %s
		%s
	`, t.History(), where))
	countQuery.Parameters = params

	it, err := countQuery.Read(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("PreviewDelete: count read: %w", err)
	}
	var count struct {
		Total int64 `bigquery:"total"`
	}
	if err := it.Next(&count); err != nil && err != iterator.Done {
		return 0, nil, fmt.Errorf("PreviewDelete: count next: %w", err)
	}

	samples, err := readHistoryRows(ctx, client, fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY created_at DESC
		%s
	`, historyColumns, t.History(), where, limitClause(sampleLimit)), params)
	if err != nil {
		return 0, nil, fmt.Errorf("PreviewDelete: %w", err)
	}
	return count.Total, samples, nil
}

func readHistoryRows(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) ([]*bq.HistoryRow, error) {
	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*bq.HistoryRow
	for {
		var r bq.HistoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
