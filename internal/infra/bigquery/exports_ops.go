package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"google.golang.org/api/iterator"
)

// DefaultExportsLimit caps ListExports when no limit is given.
const DefaultExportsLimit = 30

// InsertExportWithClient records one export in daily_exports.
func InsertExportWithClient(ctx context.Context, client *bigquery.Client, t Tables, row *bq.ExportRow) error {
	inserter := client.DatasetInProject(t.Project, t.dataset()).Table(exportsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertExport: inserting row: %w", err)
	}
	return nil
}

// ListExportsWithClient returns the latest exports, newest first.
func ListExportsWithClient(ctx context.Context, client *bigquery.Client, t Tables, limit int) ([]*bq.ExportRow, error) {
	if limit <= 0 {
		limit = DefaultExportsLimit
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			id,
			export_date,
			file_url,
			file_name,
			record_count,
			status,
			error,
			created_at
		FROM %s
		ORDER BY export_date DESC, created_at DESC
		LIMIT @limit
	`, t.Exports()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExports: query read: %w", err)
	}

	var rows []*bq.ExportRow
	for {
		var r bq.ExportRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExports: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
