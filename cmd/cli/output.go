package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/config"
	"github.com/dvloznov/wallet-dashboard/internal/dashboard"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printBalance(w io.Writer, b *domain.BalanceSnapshot) {
	fmt.Fprintf(w, "Balance: %s %s (as of %s)\n", b.CurrentBalance.StringFixed(2), b.Currency, b.Timestamp.Local().Format(timeLayout))
}

func printTransactions(w io.Writer, txs []domain.NormalizedTransaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tPHONE\tAMOUNT\tTRANSACTION ID\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.TransactionTime.Local().Format(timeLayout),
			tx.PhoneNumber,
			tx.Amount.StringFixed(2),
			tx.TransactionID,
			tx.Description)
	}
	tw.Flush()
}

func printTransfers(w io.Writer, records []domain.TransferRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No transfers found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tFROM\tTO\tAMOUNT\tSTATUS\tREFERENCE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Datetime.Local().Format(timeLayout),
			r.FromName,
			r.ToName,
			r.Amount.StringFixed(2),
			r.Status,
			r.Reference)
	}
	tw.Flush()
}

func printHistory(w io.Writer, result *domain.HistoryResult) {
	sum := result.Summary
	fmt.Fprintf(w, "%d transactions, total %s %s\n\n", sum.TotalTransactions, sum.TotalAmount.StringFixed(2), domain.Currency)

	if len(sum.DailyTotals) > 0 {
		tw := newTable(w)
		fmt.Fprintln(tw, "DATE\tCOUNT\tTOTAL")
		for _, d := range sum.DailyTotals {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Date, d.Count, d.Total.StringFixed(2))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	records := make([]domain.NormalizedTransaction, 0, len(result.Records))
	for _, r := range result.Records {
		records = append(records, r.NormalizedTransaction)
	}
	printTransactions(w, records)
}

func printPreview(w io.Writer, p *history.PreviewResult) {
	fmt.Fprintf(w, "%d records would be deleted", p.TotalCount)
	if int64(len(p.Samples)) < p.TotalCount {
		fmt.Fprintf(w, " (showing %d)", len(p.Samples))
	}
	fmt.Fprintln(w)
	if len(p.Samples) == 0 {
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tPHONE\tAMOUNT\tSOURCE\tDESCRIPTION")
	for _, r := range p.Samples {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.TransactionDate.Local().Format(timeLayout),
			r.PhoneNumber,
			r.Amount.StringFixed(2),
			r.SourceType,
			r.Description)
	}
	tw.Flush()
}

func printExports(w io.Writer, exports []domain.ExportRecord) {
	if len(exports) == 0 {
		fmt.Fprintln(w, "No exports yet.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tSTATUS\tRECORDS\tFILE\tURL")
	for _, e := range exports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ExportDate, e.Status, e.RecordCount, e.FileName, e.FileURL)
	}
	tw.Flush()
}

func printSettings(w io.Writer, s config.WalletSettings) {
	tw := newTable(w)
	fmt.Fprintf(tw, "proxy\t%s\n", s.ProxyURL)
	fmt.Fprintf(tw, "token\t%s\n", maskToken(s.Token))
	fmt.Fprintf(tw, "balance-url\t%s\n", s.BalanceURL)
	fmt.Fprintf(tw, "transactions-url\t%s\n", s.TransactionsURL)
	fmt.Fprintf(tw, "search-url\t%s\n", s.SearchURL)
	tw.Flush()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func printSnapshot(w io.Writer, s dashboard.Snapshot) {
	fmt.Fprintf(w, "\n=== %s ===\n", s.LastUpdated.Local().Format(time.Kitchen))

	switch {
	case s.BalanceError != "":
		fmt.Fprintf(w, "Balance: %s\n", s.BalanceError)
	case s.Balance != nil:
		printBalance(w, s.Balance)
	}

	if s.TransactionsError != "" {
		fmt.Fprintf(w, "Transactions: %s\n", s.TransactionsError)
	} else {
		printTransactions(w, s.Transactions)
	}

	switch {
	case s.HistoryError != "":
		fmt.Fprintf(w, "History: %s\n", s.HistoryError)
	case s.History != nil:
		fmt.Fprintln(w)
		printHistory(w, s.History)
	}
}
