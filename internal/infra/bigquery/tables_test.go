package bigquery

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/wallet-dashboard/internal/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

func TestTables_Qualified(t *testing.T) {
	tables := Tables{Project: "proj"}
	if got := tables.History(); got != "`proj.wallet.transaction_history`" {
		t.Errorf("History() = %s", got)
	}
	tables.Dataset = "other"
	if got := tables.Exports(); got != "`proj.other.daily_exports`" {
		t.Errorf("Exports() = %s", got)
	}
}

func TestHistoryWhere(t *testing.T) {
	start := civil.Date{Year: 2025, Month: 10, Day: 1}
	end := civil.Date{Year: 2025, Month: 10, Day: 31}

	tests := []struct {
		name       string
		q          bq.HistoryQuery
		withPhone  bool
		wantParams []string
		wantEmpty  bool
	}{
		{name: "no filter", wantEmpty: true},
		{
			name:       "dates and phone",
			q:          bq.HistoryQuery{StartDate: &start, EndDate: &end, PhoneNumber: "0812345678"},
			withPhone:  true,
			wantParams: []string{"start_date", "end_date", "phone_number"},
		},
		{
			name:       "phone ignored for table reads",
			q:          bq.HistoryQuery{EndDate: &end, PhoneNumber: "0812345678"},
			wantParams: []string{"end_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, params := historyWhere(tt.q, tt.withPhone)
			if tt.wantEmpty {
				if where != "" || len(params) != 0 {
					t.Errorf("expected empty clause, got %q %v", where, params)
				}
				return
			}
			if !strings.HasPrefix(where, "WHERE ") {
				t.Errorf("clause = %q", where)
			}
			if len(params) != len(tt.wantParams) {
				t.Fatalf("params = %v, want %v", params, tt.wantParams)
			}
			for i, name := range tt.wantParams {
				if params[i].Name != name || !strings.Contains(where, "@"+name) {
					t.Errorf("param %d = %s, clause %q", i, params[i].Name, where)
				}
			}
		})
	}
}

func TestDeleteWhere(t *testing.T) {
	where, params := deleteWhere(bq.DeleteFilter{SourceType: "transfer_search"})
	if len(params) != 1 || params[0].Value != "transfer_search" || strings.Contains(where, "search_term") {
		t.Errorf("source-only clause = %q %v", where, params)
	}

	where, params = deleteWhere(bq.DeleteFilter{SourceType: "transfer_search", SearchTerm: "  Via Transfer Search "})
	if len(params) != 2 {
		t.Fatalf("params = %v", params)
	}
	if params[1].Value != "Via Transfer Search" {
		t.Errorf("search term not trimmed: %v", params[1].Value)
	}
	if !strings.Contains(where, "LOWER(@search_term)") {
		t.Errorf("search is not case-insensitive: %q", where)
	}
}

func TestLimitClause(t *testing.T) {
	if limitClause(0) != "" || limitClause(-1) != "" {
		t.Error("non-positive limit should produce no clause")
	}
	if limitClause(50) != "LIMIT 50" {
		t.Errorf("limitClause(50) = %q", limitClause(50))
	}
}

func TestInsertHistoryStatement(t *testing.T) {
	row := bq.NewHistoryRow(domain.NormalizedTransaction{
		PhoneNumber:     "0812345678",
		Amount:          decimal.RequireFromString("150.50"),
		TransactionID:   "TXN001",
		TransactionTime: time.Date(2025, 10, 31, 9, 0, 0, 0, time.UTC),
		Description:     "Somchai received via transfer search for 0812345678",
		SourceType:      domain.SourceTransferSearch,
	}, "row-1", time.Date(2025, 10, 31, 9, 5, 0, 0, time.UTC))

	sql, params := insertHistoryStatement(Tables{Project: "proj"}, row)

	if !strings.Contains(sql, "INSERT INTO `proj.wallet.transaction_history`") {
		t.Errorf("sql = %s", sql)
	}
	if strings.Contains(sql, "0812345678") {
		t.Error("values must be bound as parameters, not inlined")
	}

	got := map[string]any{}
	for _, p := range params {
		if !strings.Contains(sql, "@"+p.Name) {
			t.Errorf("parameter %s not referenced in sql", p.Name)
		}
		got[p.Name] = p.Value
	}
	for _, col := range strings.Split(historyColumns, ",") {
		if _, ok := got[strings.TrimSpace(col)]; !ok {
			t.Errorf("column %s has no parameter", strings.TrimSpace(col))
		}
	}
	if got["id"] != "row-1" || got["transaction_id"] != "TXN001" {
		t.Errorf("params = %v", got)
	}
	if src, ok := got["source_type"].(bigquery.NullString); !ok || src.StringVal != "transfer_search" {
		t.Errorf("source_type = %v", got["source_type"])
	}
}
