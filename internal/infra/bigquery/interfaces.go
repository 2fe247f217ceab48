package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
)

// Re-export interfaces from shared package
type HistoryRepository = bq.HistoryRepository
type ExportRepository = bq.ExportRepository

// BigQueryRepository implements both HistoryRepository and ExportRepository
// on one shared BigQuery client.
type BigQueryRepository struct {
	client *bigquery.Client
	tables Tables
}

// NewBigQueryRepository creates a repository with its own client for
// tables.Project.
func NewBigQueryRepository(ctx context.Context, tables Tables) (*BigQueryRepository, error) {
	if tables.Project == "" {
		return nil, fmt.Errorf("NewBigQueryRepository: project ID is required")
	}
	client, err := bigquery.NewClient(ctx, tables.Project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{client: client, tables: tables}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertHistory delegates to InsertHistoryWithClient.
func (r *BigQueryRepository) InsertHistory(ctx context.Context, row *bq.HistoryRow) error {
	return InsertHistoryWithClient(ctx, r.client, r.tables, row)
}

// QueryHistory delegates to QueryHistoryWithClient.
func (r *BigQueryRepository) QueryHistory(ctx context.Context, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
	return QueryHistoryWithClient(ctx, r.client, r.tables, q)
}

// SummarizeHistory delegates to SummarizeHistoryWithClient.
func (r *BigQueryRepository) SummarizeHistory(ctx context.Context, q bq.HistoryQuery) ([]*bq.DailyTotalRow, error) {
	return SummarizeHistoryWithClient(ctx, r.client, r.tables, q)
}

// QueryTableRows delegates to QueryTableRowsWithClient.
func (r *BigQueryRepository) QueryTableRows(ctx context.Context, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
	return QueryTableRowsWithClient(ctx, r.client, r.tables, q)
}

// DeleteHistory delegates to DeleteHistoryWithClient.
func (r *BigQueryRepository) DeleteHistory(ctx context.Context, f bq.DeleteFilter) (int64, error) {
	return DeleteHistoryWithClient(ctx, r.client, r.tables, f)
}

// PreviewDelete delegates to PreviewDeleteWithClient.
func (r *BigQueryRepository) PreviewDelete(ctx context.Context, f bq.DeleteFilter, sampleLimit int) (int64, []*bq.HistoryRow, error) {
	return PreviewDeleteWithClient(ctx, r.client, r.tables, f, sampleLimit)
}

// InsertExport delegates to InsertExportWithClient.
func (r *BigQueryRepository) InsertExport(ctx context.Context, row *bq.ExportRow) error {
	return InsertExportWithClient(ctx, r.client, r.tables, row)
}

// ListExports delegates to ListExportsWithClient.
func (r *BigQueryRepository) ListExports(ctx context.Context, limit int) ([]*bq.ExportRow, error) {
	return ListExportsWithClient(ctx, r.client, r.tables, limit)
}

var (
	_ HistoryRepository = (*BigQueryRepository)(nil)
	_ ExportRepository  = (*BigQueryRepository)(nil)
)
