package bigquery

import (
	"context"
)

// MockHistoryRepository is a HistoryRepository for tests. Unset funcs
// return zero values.
type MockHistoryRepository struct {
	InsertHistoryFunc    func(ctx context.Context, row *HistoryRow) error
	QueryHistoryFunc     func(ctx context.Context, q HistoryQuery) ([]*HistoryRow, error)
	SummarizeHistoryFunc func(ctx context.Context, q HistoryQuery) ([]*DailyTotalRow, error)
	QueryTableRowsFunc   func(ctx context.Context, q HistoryQuery) ([]*HistoryRow, error)
	DeleteHistoryFunc    func(ctx context.Context, f DeleteFilter) (int64, error)
	PreviewDeleteFunc    func(ctx context.Context, f DeleteFilter, sampleLimit int) (int64, []*HistoryRow, error)
}

func (m *MockHistoryRepository) InsertHistory(ctx context.Context, row *HistoryRow) error {
	if m.InsertHistoryFunc != nil {
		return m.InsertHistoryFunc(ctx, row)
	}
	return nil
}

func (m *MockHistoryRepository) QueryHistory(ctx context.Context, q HistoryQuery) ([]*HistoryRow, error) {
	if m.QueryHistoryFunc != nil {
		return m.QueryHistoryFunc(ctx, q)
	}
	return nil, nil
}

func (m *MockHistoryRepository) SummarizeHistory(ctx context.Context, q HistoryQuery) ([]*DailyTotalRow, error) {
	if m.SummarizeHistoryFunc != nil {
		return m.SummarizeHistoryFunc(ctx, q)
	}
	return nil, nil
}

func (m *MockHistoryRepository) QueryTableRows(ctx context.Context, q HistoryQuery) ([]*HistoryRow, error) {
	if m.QueryTableRowsFunc != nil {
		return m.QueryTableRowsFunc(ctx, q)
	}
	return nil, nil
}

func (m *MockHistoryRepository) DeleteHistory(ctx context.Context, f DeleteFilter) (int64, error) {
	if m.DeleteHistoryFunc != nil {
		return m.DeleteHistoryFunc(ctx, f)
	}
	return 0, nil
}

func (m *MockHistoryRepository) PreviewDelete(ctx context.Context, f DeleteFilter, sampleLimit int) (int64, []*HistoryRow, error) {
	if m.PreviewDeleteFunc != nil {
		return m.PreviewDeleteFunc(ctx, f, sampleLimit)
	}
	return 0, nil, nil
}

// MockExportRepository is an ExportRepository for tests.
type MockExportRepository struct {
	InsertExportFunc func(ctx context.Context, row *ExportRow) error
	ListExportsFunc  func(ctx context.Context, limit int) ([]*ExportRow, error)
}

func (m *MockExportRepository) InsertExport(ctx context.Context, row *ExportRow) error {
	if m.InsertExportFunc != nil {
		return m.InsertExportFunc(ctx, row)
	}
	return nil
}

func (m *MockExportRepository) ListExports(ctx context.Context, limit int) ([]*ExportRow, error) {
	if m.ListExportsFunc != nil {
		return m.ListExportsFunc(ctx, limit)
	}
	return nil, nil
}

var (
	_ HistoryRepository = (*MockHistoryRepository)(nil)
	_ ExportRepository  = (*MockExportRepository)(nil)
)
