// Package export builds daily transaction history exports, uploads them to
// cloud storage and records them in daily_exports.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/gcs"
	"github.com/dvloznov/wallet-dashboard/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx" (any case); empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) contentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// DefaultURLTTL is how long signed download URLs stay valid.
const DefaultURLTTL = 7 * 24 * time.Hour

var headers = []string{
	"ID",
	"Transaction Date",
	"Phone Number",
	"Amount",
	"Transaction ID",
	"Description",
	"Source Type",
	"Created At",
}

// Service runs daily exports.
type Service struct {
	history bq.HistoryRepository
	exports bq.ExportRepository
	storage gcs.StorageService
	log     zerolog.Logger
	urlTTL  time.Duration
	now     func() time.Time
}

// NewService creates a Service.
func NewService(history bq.HistoryRepository, exports bq.ExportRepository, storage gcs.StorageService, log zerolog.Logger) *Service {
	return &Service{
		history: history,
		exports: exports,
		storage: storage,
		log:     log,
		urlTTL:  DefaultURLTTL,
		now:     time.Now,
	}
}

// RunDaily exports every row of date in format and records the outcome.
// A failed upload is still recorded, with status failed.
func (s *Service) RunDaily(ctx context.Context, date civil.Date, format Format) (*bq.ExportRow, error) {
	start := s.now()

	rows, err := s.history.QueryHistory(ctx, bq.HistoryQuery{StartDate: &date, EndDate: &date})
	if err != nil {
		return nil, fmt.Errorf("RunDaily: query history: %w", err)
	}

	var data []byte
	switch format {
	case FormatXLSX:
		data, err = BuildXLSX(rows)
	default:
		format = FormatCSV
		data, err = BuildCSV(rows)
	}
	if err != nil {
		return nil, fmt.Errorf("RunDaily: build %s: %w", format, err)
	}

	fileName := FileName(date, format)
	record := &bq.ExportRow{
		ID:          uuid.New().String(),
		ExportDate:  date,
		FileName:    fileName,
		RecordCount: int64(len(rows)),
		CreatedAt:   s.now().UTC(),
	}

	url, uploadErr := s.upload(ctx, ObjectName(date, format), data, format)
	if uploadErr != nil {
		record.Status = domain.ExportStatusFailed
		record.Error = bigquery.NullString{StringVal: uploadErr.Error(), Valid: true}
	} else {
		record.Status = domain.ExportStatusCompleted
		record.FileURL = url
	}

	if err := s.exports.InsertExport(ctx, record); err != nil {
		return nil, fmt.Errorf("RunDaily: record export: %w", err)
	}
	if uploadErr != nil {
		return record, fmt.Errorf("RunDaily: upload: %w", uploadErr)
	}

	s.log.Info().
		Str("export_date", date.String()).
		Str("format", string(format)).
		Int("rows", len(rows)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Daily export completed")
	return record, nil
}

// HandleJob is the jobs.JobHandler for export_daily jobs.
func (s *Service) HandleJob(ctx context.Context, job jobs.Job) error {
	exportJob, ok := job.(*jobs.ExportDailyJob)
	if !ok {
		return fmt.Errorf("HandleJob: unexpected job type: %T", job)
	}

	date, err := civil.ParseDate(exportJob.Date)
	if err != nil {
		return fmt.Errorf("HandleJob: invalid date %q: %w", exportJob.Date, err)
	}
	format, err := ParseFormat(exportJob.Format)
	if err != nil {
		return fmt.Errorf("HandleJob: %w", err)
	}

	s.log.Info().
		Str("job_id", exportJob.JobID).
		Str("date", exportJob.Date).
		Str("format", string(format)).
		Msg("Processing export job")

	row, err := s.RunDaily(ctx, date, format)
	if row != nil {
		exportJob.ExportID = row.ID
	}
	return err
}

func (s *Service) upload(ctx context.Context, object string, data []byte, format Format) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("no storage bucket configured")
	}
	if _, err := s.storage.UploadBytes(ctx, object, data, format.contentType()); err != nil {
		return "", err
	}
	url, err := s.storage.SignedURL(ctx, object, s.urlTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("object", object).Msg("Could not sign export URL, using fallback URL")
		if url == "" {
			return "", err
		}
	}
	return url, nil
}

// FileName is the download name of an export.
func FileName(date civil.Date, format Format) string {
	return fmt.Sprintf("transaction_history_%s.%s", date.String(), format)
}

// ObjectName is where an export is stored in the bucket.
func ObjectName(date civil.Date, format Format) string {
	return fmt.Sprintf("exports/%04d/%02d/%02d/%s", date.Year, int(date.Month), date.Day, FileName(date, format))
}

func rowValues(r *bq.HistoryRow) []string {
	return []string{
		r.ID,
		r.TransactionDate.UTC().Format(time.RFC3339),
		r.PhoneNumber,
		bq.DecimalFromRat(r.Amount).StringFixed(2),
		r.TransactionID,
		r.Description.StringVal,
		r.SourceType.StringVal,
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BuildCSV renders rows with a header line.
func BuildCSV(rows []*bq.HistoryRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("BuildCSV: header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(rowValues(r)); err != nil {
			return nil, fmt.Errorf("BuildCSV: row %s: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("BuildCSV: flush: %w", err)
	}
	return buf.Bytes(), nil
}

const sheetName = "Transactions"

// BuildXLSX renders rows as a single-sheet workbook. Amounts are written as
// numbers so they can be summed in a spreadsheet.
func BuildXLSX(rows []*bq.HistoryRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("BuildXLSX: rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("BuildXLSX: header: %w", err)
		}
	}

	for i, r := range rows {
		line := i + 2
		values := rowValues(r)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			var value any = v
			if col == 3 {
				amount, _ := bq.DecimalFromRat(r.Amount).Float64()
				value = amount
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("BuildXLSX: row %d: %w", line, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38) // id
	_ = f.SetColWidth(sheetName, "B", "B", 22) // date
	_ = f.SetColWidth(sheetName, "C", "C", 16) // phone
	_ = f.SetColWidth(sheetName, "D", "D", 12) // amount
	_ = f.SetColWidth(sheetName, "E", "E", 18) // transaction id
	_ = f.SetColWidth(sheetName, "F", "F", 60) // description
	_ = f.SetColWidth(sheetName, "G", "H", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("BuildXLSX: write: %w", err)
	}
	return buf.Bytes(), nil
}
