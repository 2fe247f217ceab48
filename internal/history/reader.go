package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/rs/zerolog"
)

// ErrHistoryUnavailable is returned when neither read path produced data.
var ErrHistoryUnavailable = errors.New("transaction history unavailable")

// DefaultLimit applies when a filter does not set one.
const DefaultLimit = 100

// Reader loads history records and their summary.
type Reader interface {
	Read(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryResult, error)
}

// PrimaryReader queries get-transaction-history, which filters and
// summarizes server-side. Rows are used exactly as returned.
type PrimaryReader struct {
	client *Client
}

// NewPrimaryReader creates a PrimaryReader.
func NewPrimaryReader(client *Client) *PrimaryReader {
	return &PrimaryReader{client: client}
}

// Read implements Reader.
func (r *PrimaryReader) Read(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryResult, error) {
	q := url.Values{}
	if filter.StartDate != nil {
		q.Set("startDate", filter.StartDate.Format(domain.DateLayout))
	}
	if filter.EndDate != nil {
		q.Set("endDate", filter.EndDate.Format(domain.DateLayout))
	}
	if filter.PhoneNumber != "" {
		q.Set("phoneNumber", filter.PhoneNumber)
	}
	q.Set("limit", strconv.Itoa(limitOf(filter)))

	var resp GetResponse
	if err := r.client.do(ctx, http.MethodGet, PathGet, q, nil, &resp); err != nil {
		return nil, fmt.Errorf("PrimaryReader.Read: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("PrimaryReader.Read: %w: %s", ErrPersistence, resp.Error)
	}
	if resp.Data == nil || resp.Data.Transactions == nil {
		return nil, fmt.Errorf("PrimaryReader.Read: %w: missing data", ErrPersistence)
	}

	result := &domain.HistoryResult{
		Records: make([]domain.HistoryRecord, 0, len(resp.Data.Transactions)),
		Summary: resp.Data.Summary,
	}
	for _, row := range resp.Data.Transactions {
		result.Records = append(result.Records, row.Record())
	}
	if result.Summary.DailyTotals == nil {
		result.Summary.DailyTotals = []domain.DailyTotal{}
	}
	return result, nil
}

// TableReader queries the raw transaction_history table and derives
// everything client-side. It fills in missing phone numbers from the
// description text, which the primary path does not do; the two paths can
// therefore disagree on phone_number for the same row.
type TableReader struct {
	client *Client
}

// NewTableReader creates a TableReader.
func NewTableReader(client *Client) *TableReader {
	return &TableReader{client: client}
}

// Read implements Reader.
func (r *TableReader) Read(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryResult, error) {
	q := url.Values{}
	q.Set("order", "transaction_date.desc")
	if filter.StartDate != nil {
		q.Set("start_date", filter.StartDate.Format(domain.DateLayout))
	}
	if filter.EndDate != nil {
		q.Set("end_date", filter.EndDate.Format(domain.DateLayout))
	}
	// The phone filter is applied after phone extraction, so the table
	// limit only holds when there is no phone filter.
	if filter.PhoneNumber == "" {
		q.Set("limit", strconv.Itoa(limitOf(filter)))
	}

	var rows []Row
	if err := r.client.do(ctx, http.MethodGet, PathTable, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("TableReader.Read: %w", err)
	}

	return BuildFallbackResult(rows, filter), nil
}

// BuildFallbackResult applies phone extraction, the phone filter and the
// limit to raw rows and summarizes what is left.
func BuildFallbackResult(rows []Row, filter domain.HistoryFilter) *domain.HistoryResult {
	records := make([]domain.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		rec := row.Record()
		if rec.PhoneNumber == "" || rec.PhoneNumber == domain.UnspecifiedPhone {
			if phone := ExtractPhone(rec.Description); phone != "" {
				rec.PhoneNumber = phone
			}
		}
		if filter.PhoneNumber != "" &&
			rec.PhoneNumber != filter.PhoneNumber &&
			!strings.Contains(rec.Description, filter.PhoneNumber) {
			continue
		}
		records = append(records, rec)
	}

	if limit := limitOf(filter); len(records) > limit {
		records = records[:limit]
	}

	return &domain.HistoryResult{
		Records: records,
		Summary: Summarize(records),
	}
}

var phonePattern = regexp.MustCompile(`\+?\d[\d-]{8,13}\d`)

// ExtractPhone pulls a phone number out of a free-text description,
// preferring the one after the "for" keyword.
func ExtractPhone(description string) string {
	lower := strings.ToLower(description)
	if i := strings.LastIndex(lower, " for "); i >= 0 {
		if m := phonePattern.FindString(description[i:]); m != "" {
			return strings.ReplaceAll(m, "-", "")
		}
	}
	if m := phonePattern.FindString(description); m != "" {
		return strings.ReplaceAll(m, "-", "")
	}
	return ""
}

// FallbackReader tries Primary and, on any error, Fallback.
type FallbackReader struct {
	Primary  Reader
	Fallback Reader
	log      zerolog.Logger
}

// NewFallbackReader creates a FallbackReader.
func NewFallbackReader(primary, fallback Reader, log zerolog.Logger) *FallbackReader {
	return &FallbackReader{Primary: primary, Fallback: fallback, log: log}
}

// Read implements Reader. Only a failure of both paths is returned.
func (r *FallbackReader) Read(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryResult, error) {
	result, primaryErr := r.Primary.Read(ctx, filter)
	if primaryErr == nil {
		return result, nil
	}

	r.log.Warn().Err(primaryErr).Msg("Primary history read failed, using table fallback")

	result, fallbackErr := r.Fallback.Read(ctx, filter)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, errors.Join(primaryErr, fallbackErr))
	}
	return result, nil
}

// NewReader wires the standard primary/table fallback pair.
func NewReader(client *Client, log zerolog.Logger) *FallbackReader {
	return NewFallbackReader(NewPrimaryReader(client), NewTableReader(client), log)
}

func limitOf(filter domain.HistoryFilter) int {
	if filter.Limit > 0 {
		return filter.Limit
	}
	return DefaultLimit
}

var (
	_ Reader = (*PrimaryReader)(nil)
	_ Reader = (*TableReader)(nil)
	_ Reader = (*FallbackReader)(nil)
)
