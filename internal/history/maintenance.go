package history

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/notify"
)

// Maintenance wraps the bulk-delete, preview and export functions.
type Maintenance struct {
	client       *Client
	notifier     *notify.Notifier
	refreshDelay time.Duration
}

// NewMaintenance creates a Maintenance client. notifier may be nil.
func NewMaintenance(client *Client, notifier *notify.Notifier, refreshDelay time.Duration) *Maintenance {
	return &Maintenance{client: client, notifier: notifier, refreshDelay: refreshDelay}
}

// Clear deletes every row with sourceType whose description contains
// searchTerm (case-insensitive). An empty searchTerm clears the whole
// source type. Listeners are told to refresh once the delete returns.
func (m *Maintenance) Clear(ctx context.Context, sourceType domain.SourceType, searchTerm string) (*ClearResult, error) {
	if !sourceType.Valid() {
		return nil, fmt.Errorf("Clear: invalid source type %q", sourceType)
	}

	var result ClearResult
	req := ClearRequest{SourceType: string(sourceType), SearchTerm: searchTerm}
	if err := m.client.do(ctx, http.MethodPost, PathClear, nil, req, &result); err != nil {
		return nil, fmt.Errorf("Clear: %w", err)
	}

	if m.notifier != nil {
		m.notifier.PublishAfter(m.refreshDelay, notify.Event{
			Source: "clear_history",
			Fields: map[string]any{
				"source_type":   string(sourceType),
				"search_term":   searchTerm,
				"deleted_count": result.DeletedCount,
			},
		})
	}
	return &result, nil
}

// Preview shows what Clear would delete for the same arguments.
func (m *Maintenance) Preview(ctx context.Context, searchTerm string, sourceType domain.SourceType) (*PreviewResult, error) {
	q := url.Values{}
	q.Set("sourceType", string(sourceType))
	if searchTerm != "" {
		q.Set("searchTerm", searchTerm)
	}

	var result PreviewResult
	if err := m.client.do(ctx, http.MethodGet, PathPreview, q, nil, &result); err != nil {
		return nil, fmt.Errorf("Preview: %w", err)
	}
	return &result, nil
}

// ListExports returns the most recent export records.
func (m *Maintenance) ListExports(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp ExportsResponse
	if err := m.client.do(ctx, http.MethodGet, PathExports, q, nil, &resp); err != nil {
		return nil, fmt.Errorf("ListExports: %w", err)
	}
	return resp.Exports, nil
}

// RequestExport queues a daily export for date in the given format
// ("csv" or "xlsx").
func (m *Maintenance) RequestExport(ctx context.Context, date time.Time, format string) (*ExportAccepted, error) {
	var resp ExportAccepted
	req := ExportRequest{Date: date.Format(domain.DateLayout), Format: format}
	if err := m.client.do(ctx, http.MethodPost, PathExports, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("RequestExport: %w", err)
	}
	return &resp, nil
}
