package main

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/shopspring/decimal"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"abcd1234efgh", "abcd****efgh"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHistoryFlags(t *testing.T) {
	filter, err := historyFlags(flag.NewFlagSet("history", flag.ContinueOnError),
		[]string{"-start", "2025-10-01", "-phone", "0812345678", "-limit", "5"})
	if err != nil {
		t.Fatal(err)
	}
	if filter.StartDate == nil || filter.StartDate.Format(domain.DateLayout) != "2025-10-01" {
		t.Errorf("StartDate = %v", filter.StartDate)
	}
	if filter.EndDate != nil || filter.PhoneNumber != "0812345678" || filter.Limit != 5 {
		t.Errorf("filter = %+v", filter)
	}

	if _, err := historyFlags(flag.NewFlagSet("history", flag.ContinueOnError), []string{"-end", "31/10/2025"}); err == nil {
		t.Error("expected error for a bad date")
	}
}

func TestPrintPreview(t *testing.T) {
	var buf bytes.Buffer
	printPreview(&buf, &history.PreviewResult{
		TotalCount: 120,
		Samples: []history.Row{{
			PhoneNumber: "0812345678",
			Amount:      decimal.RequireFromString("150"),
			SourceType:  "transfer_search",
			Description: "Transfer via transfer search",
		}},
	})

	out := buf.String()
	if !strings.HasPrefix(out, "120 records would be deleted (showing 1)") {
		t.Errorf("header = %q", out)
	}
	if !strings.Contains(out, "150.00") || !strings.Contains(out, "transfer_search") {
		t.Errorf("output = %s", out)
	}
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, &domain.HistoryResult{Summary: domain.Summary{DailyTotals: []domain.DailyTotal{}}})
	if !strings.Contains(buf.String(), "0 transactions, total 0.00 THB") || !strings.Contains(buf.String(), "No transactions.") {
		t.Errorf("output = %q", buf.String())
	}
}
