package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/dvloznov/wallet-dashboard/internal/jobs"
	"github.com/dvloznov/wallet-dashboard/internal/jobs/inmemory"
	"github.com/rs/zerolog"
)

func newHistoryHandler(t *testing.T, repo bq.HistoryRepository) *HistoryHandler {
	t.Helper()
	h, err := NewHistoryHandler(repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHistoryHandler: %v", err)
	}
	h.now = func() time.Time { return time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC) }
	return h
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSave(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantAmount string
	}{
		{
			name:       "decimal string amount",
			body:       `{"phoneNumber":"0812345678","amount":"150.5","transactionId":"TXN001","transactionTime":"2025-10-31T09:15:00Z","sourceType":"transfer_search"}`,
			wantStatus: http.StatusOK,
			wantAmount: "150.5",
		},
		{
			name:       "number amount without optional fields",
			body:       `{"phoneNumber":"unspecified","amount":200,"transactionId":"TXN002","transactionTime":"2025-10-31T18:00:00+07:00"}`,
			wantStatus: http.StatusOK,
			wantAmount: "200",
		},
		{
			name:       "missing transactionId",
			body:       `{"phoneNumber":"0812345678","amount":1,"transactionTime":"2025-10-31T09:15:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative amount",
			body:       `{"phoneNumber":"0812345678","amount":-5,"transactionId":"T","transactionTime":"2025-10-31T09:15:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad timestamp",
			body:       `{"phoneNumber":"0812345678","amount":1,"transactionId":"T","transactionTime":"yesterday"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown source type",
			body:       `{"phoneNumber":"0812345678","amount":1,"transactionId":"T","transactionTime":"2025-10-31T09:15:00Z","sourceType":"import"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not json",
			body:       `amount=1`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inserted *bq.HistoryRow
			repo := &bq.MockHistoryRepository{
				InsertHistoryFunc: func(_ context.Context, row *bq.HistoryRow) error {
					inserted = row
					return nil
				},
			}
			h := newHistoryHandler(t, repo)

			rec := httptest.NewRecorder()
			h.Save(rec, httptest.NewRequest(http.MethodPost, "/functions/save-transaction-history", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decode[history.SaveResponse](t, rec)
			if tt.wantStatus != http.StatusOK {
				if resp.Success || resp.Error == "" || inserted != nil {
					t.Errorf("rejected request: resp=%+v inserted=%v", resp, inserted)
				}
				return
			}
			if !resp.Success || resp.ID == "" || inserted == nil || inserted.ID != resp.ID {
				t.Fatalf("resp=%+v inserted=%+v", resp, inserted)
			}
			if got := bq.DecimalFromRat(inserted.Amount).String(); got != tt.wantAmount {
				t.Errorf("amount = %s, want %s", got, tt.wantAmount)
			}
			if inserted.TransactionDate.Location() != time.UTC || !inserted.CreatedAt.Equal(h.now()) {
				t.Errorf("times = %v / %v", inserted.TransactionDate, inserted.CreatedAt)
			}
		})
	}
}

func TestSave_SameTransactionTwice(t *testing.T) {
	var ids []string
	repo := &bq.MockHistoryRepository{
		InsertHistoryFunc: func(_ context.Context, row *bq.HistoryRow) error {
			ids = append(ids, row.ID)
			return nil
		},
	}
	h := newHistoryHandler(t, repo)
	body := `{"phoneNumber":"0812345678","amount":"150","transactionId":"TXN001","transactionTime":"2025-10-31T09:15:00Z"}`

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Save(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Errorf("expected two distinct rows, got %v", ids)
	}
}

func TestSave_InsertFailure(t *testing.T) {
	repo := &bq.MockHistoryRepository{
		InsertHistoryFunc: func(context.Context, *bq.HistoryRow) error {
			return errors.New("streaming insert failed")
		},
	}
	h := newHistoryHandler(t, repo)

	rec := httptest.NewRecorder()
	h.Save(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"phoneNumber":"x","amount":1,"transactionId":"T","transactionTime":"2025-10-31T09:15:00Z"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func historyRow(id string, amount int64, day int) *bq.HistoryRow {
	return &bq.HistoryRow{
		ID:              id,
		PhoneNumber:     "0812345678",
		Amount:          big.NewRat(amount, 1),
		TransactionID:   "TXN-" + id,
		TransactionDate: time.Date(2025, 10, day, 10, 0, 0, 0, time.UTC),
		SourceType:      bigquery.NullString{StringVal: "transfer_search", Valid: true},
	}
}

func TestGet(t *testing.T) {
	var gotQuery, gotSummaryQuery bq.HistoryQuery
	repo := &bq.MockHistoryRepository{
		QueryHistoryFunc: func(_ context.Context, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
			gotQuery = q
			return []*bq.HistoryRow{historyRow("a", 200, 31)}, nil
		},
		SummarizeHistoryFunc: func(_ context.Context, q bq.HistoryQuery) ([]*bq.DailyTotalRow, error) {
			gotSummaryQuery = q
			return []*bq.DailyTotalRow{
				{Day: civil.Date{Year: 2025, Month: 10, Day: 31}, Total: big.NewRat(200, 1), Count: 1},
				{Day: civil.Date{Year: 2025, Month: 10, Day: 30}, Total: big.NewRat(150, 1), Count: 2},
			}, nil
		},
	}
	h := newHistoryHandler(t, repo)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet,
		"/functions/get-transaction-history?startDate=2025-10-01&endDate=2025-10-31&phoneNumber=0812345678&limit=5000", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	if gotQuery.StartDate.String() != "2025-10-01" || gotQuery.EndDate.String() != "2025-10-31" {
		t.Errorf("dates = %v / %v", gotQuery.StartDate, gotQuery.EndDate)
	}
	if gotQuery.PhoneNumber != "0812345678" || gotQuery.Limit != maxHistoryLimit {
		t.Errorf("query = %+v", gotQuery)
	}
	if gotSummaryQuery.PhoneNumber != "0812345678" {
		t.Errorf("summary query = %+v", gotSummaryQuery)
	}

	resp := decode[history.GetResponse](t, rec)
	if resp.Data == nil {
		t.Fatalf("body has no data: %s", rec.Body.String())
	}
	if len(resp.Data.Transactions) != 1 || resp.Data.Transactions[0].ID != "a" {
		t.Errorf("transactions = %+v", resp.Data.Transactions)
	}
	sum := resp.Data.Summary
	if sum.TotalTransactions != 3 || sum.TotalAmount.String() != "350" || len(sum.DailyTotals) != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestGet_Defaults(t *testing.T) {
	var gotQuery bq.HistoryQuery
	repo := &bq.MockHistoryRepository{
		QueryHistoryFunc: func(_ context.Context, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
			gotQuery = q
			return nil, nil
		},
	}
	h := newHistoryHandler(t, repo)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/functions/get-transaction-history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotQuery.Limit != defaultHistoryLimit || gotQuery.StartDate != nil || gotQuery.EndDate != nil {
		t.Errorf("query = %+v", gotQuery)
	}
	if !strings.Contains(rec.Body.String(), `"transactions":[]`) || !strings.Contains(rec.Body.String(), `"dailyTotals":[]`) {
		t.Errorf("empty result should use empty arrays: %s", rec.Body.String())
	}
}

func TestGet_BadParams(t *testing.T) {
	h := newHistoryHandler(t, &bq.MockHistoryRepository{})

	for _, target := range []string{
		"/?startDate=31-10-2025",
		"/?startDate=2025-10-31&endDate=2025-10-01",
		"/?limit=-1",
		"/?limit=ten",
	} {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestTable(t *testing.T) {
	var gotQuery bq.HistoryQuery
	repo := &bq.MockHistoryRepository{
		QueryTableRowsFunc: func(_ context.Context, q bq.HistoryQuery) ([]*bq.HistoryRow, error) {
			gotQuery = q
			return []*bq.HistoryRow{historyRow("a", 1, 30), historyRow("b", 2, 29)}, nil
		},
	}
	h := newHistoryHandler(t, repo)

	rec := httptest.NewRecorder()
	h.Table(rec, httptest.NewRequest(http.MethodGet,
		"/functions/tables/transaction_history?order=transaction_date.desc&start_date=2025-10-01&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotQuery.Limit != 10 || gotQuery.StartDate == nil || gotQuery.EndDate != nil {
		t.Errorf("query = %+v", gotQuery)
	}

	rows := decode[[]history.Row](t, rec)
	if len(rows) != 2 || rows[1].ID != "b" || rows[0].SourceType != "transfer_search" {
		t.Errorf("rows = %+v", rows)
	}

	rec = httptest.NewRecorder()
	h.Table(rec, httptest.NewRequest(http.MethodGet, "/functions/tables/transaction_history?order=amount.asc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported order: status = %d", rec.Code)
	}
}

func TestClear(t *testing.T) {
	var gotFilter bq.DeleteFilter
	repo := &bq.MockHistoryRepository{
		DeleteHistoryFunc: func(_ context.Context, f bq.DeleteFilter) (int64, error) {
			gotFilter = f
			return 4, nil
		},
	}
	h := newHistoryHandler(t, repo)

	rec := httptest.NewRecorder()
	h.Clear(rec, httptest.NewRequest(http.MethodPost, "/functions/clear-transfer-search-history",
		strings.NewReader(`{"sourceType":"transfer_search","searchTerm":"0812"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotFilter.SourceType != "transfer_search" || gotFilter.SearchTerm != "0812" {
		t.Errorf("filter = %+v", gotFilter)
	}
	resp := decode[history.ClearResult](t, rec)
	if resp.DeletedCount != 4 || resp.Message != "Deleted 4 records" {
		t.Errorf("resp = %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.Clear(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sourceType":"everything"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid source type: status = %d", rec.Code)
	}
}

func TestPreview(t *testing.T) {
	var gotLimit int
	repo := &bq.MockHistoryRepository{
		PreviewDeleteFunc: func(_ context.Context, f bq.DeleteFilter, limit int) (int64, []*bq.HistoryRow, error) {
			gotLimit = limit
			return 120, []*bq.HistoryRow{historyRow("a", 1, 30)}, nil
		},
	}
	h := newHistoryHandler(t, repo)

	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest(http.MethodGet, "/functions/preview-delete-history?sourceType=transfer_search&searchTerm=x", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotLimit != history.PreviewSampleLimit {
		t.Errorf("sample limit = %d", gotLimit)
	}
	resp := decode[history.PreviewResult](t, rec)
	if resp.TotalCount != 120 || len(resp.Samples) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestExports(t *testing.T) {
	repo := &bq.MockExportRepository{
		ListExportsFunc: func(_ context.Context, limit int) ([]*bq.ExportRow, error) {
			return []*bq.ExportRow{{
				ID:          "e1",
				ExportDate:  civil.Date{Year: 2025, Month: 10, Day: 30},
				FileName:    "transaction_history_2025-10-30.csv",
				RecordCount: 12,
				Status:      "completed",
			}}, nil
		},
	}
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, 1, store, zerolog.Nop())
	defer queue.Close()
	h := NewExportsHandler(repo, queue, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/functions/exports", nil))
	list := decode[history.ExportsResponse](t, rec)
	if list.Count != 1 || list.Exports[0].ExportDate != "2025-10-30" || list.Exports[0].RecordCount != 12 {
		t.Errorf("list = %+v", list)
	}

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/functions/exports", strings.NewReader(`{"date":"2025-10-31","format":"xlsx"}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	accepted := decode[history.ExportAccepted](t, rec)
	if accepted.JobID == "" || accepted.Status != string(jobs.JobStatusPending) {
		t.Errorf("accepted = %+v", accepted)
	}
	job, err := store.GetJob(context.Background(), accepted.JobID)
	if err != nil || job.Date != "2025-10-31" || job.Format != "xlsx" {
		t.Errorf("stored job = %+v, %v", job, err)
	}

	for _, body := range []string{`{"date":"31/10/2025"}`, `{"date":"2025-10-31","format":"pdf"}`, `{`} {
		rec = httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/functions/exports", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestExports_DisabledWithoutPublisher(t *testing.T) {
	h := NewExportsHandler(&bq.MockExportRepository{}, nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/functions/exports", strings.NewReader(`{"date":"2025-10-31"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestJobs(t *testing.T) {
	store := inmemory.NewStore()
	store.SaveJob(context.Background(), &jobs.ExportDailyJob{JobID: "j1", Date: "2025-10-31", Status: jobs.JobStatusFailed})
	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/functions/jobs/j1", nil), "j1")
	if rec.Code != http.StatusOK || decode[jobs.ExportDailyJob](t, rec).Status != jobs.JobStatusFailed {
		t.Errorf("GetJob: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/functions/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/functions/jobs?status=failed&limit=5", nil))
	if !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("ListJobs = %s", rec.Body.String())
	}
}
