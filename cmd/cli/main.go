package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/config"
	"github.com/dvloznov/wallet-dashboard/internal/dashboard"
	"github.com/dvloznov/wallet-dashboard/internal/detach"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/dvloznov/wallet-dashboard/internal/logger"
	"github.com/dvloznov/wallet-dashboard/internal/notify"
	"github.com/dvloznov/wallet-dashboard/internal/wallet"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var run func(*app, []string) error
	switch os.Args[1] {
	case "balance":
		run = runBalance
	case "recent":
		run = runRecent
	case "search":
		run = runSearch
	case "history":
		run = runHistory
	case "preview":
		run = runPreview
	case "clear":
		run = runClear
	case "exports":
		run = runExports
	case "export":
		run = runExport
	case "settings":
		run = runSettings
	case "watch":
		run = runWatch
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	a, err := newApp(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	err = run(a, os.Args[2:])
	a.close()
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("Command failed")
	}
}

func printUsage() {
	fmt.Println("Wallet Dashboard CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  balance   Show the current wallet balance")
	fmt.Println("  recent    List recent transactions and record them in history")
	fmt.Println("  search    Search incoming transfers by phone number")
	fmt.Println("  history   Show the stored transaction history report")
	fmt.Println("  preview   Show what clear would delete")
	fmt.Println("  clear     Delete stored history by source type and search term")
	fmt.Println("  exports   List daily exports")
	fmt.Println("  export    Queue a daily export")
	fmt.Println("  settings  Show or replace the wallet endpoint settings")
	fmt.Println("  watch     Poll balance, transactions and history until interrupted")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// app holds the collaborators every command shares.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	settings *config.FileStore
	notifier *notify.Notifier
	writes   *detach.Group
	wallet   *wallet.Client
	reader   history.Reader
	maint    *history.Maintenance
}

func newApp(log zerolog.Logger) (*app, error) {
	cfg := config.Load(log)
	log = logger.NewWithLevel(cfg.LogLevel)

	settings, err := config.NewFileStore(cfg.SettingsPath, cfg.Wallet)
	if err != nil {
		return nil, err
	}

	historyClient := history.NewClient(cfg.History.BaseURL, cfg.History.APIKey, cfg.Client.RequestTimeout)
	notifier := notify.New(logger.Component(log, "notify"))
	writes := detach.New(logger.Component(log, "history-writes"), cfg.Client.WriteTimeout)

	return &app{
		cfg:      cfg,
		log:      log,
		settings: settings,
		notifier: notifier,
		writes:   writes,
		wallet: wallet.NewClient(settings, wallet.Options{
			Saver:        history.NewWriter(historyClient, logger.Component(log, "history")),
			Writes:       writes,
			Notifier:     notifier,
			Logger:       logger.Component(log, "wallet"),
			Timeout:      cfg.Client.RequestTimeout,
			RefreshDelay: cfg.Client.RefreshDelay,
		}),
		reader: history.NewReader(historyClient, logger.Component(log, "history")),
		maint:  history.NewMaintenance(historyClient, notifier, cfg.Client.RefreshDelay),
	}, nil
}

// close waits for history writes and scheduled notifications so a short
// command does not exit with work still in flight.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Client.WriteTimeout+time.Second)
	defer cancel()
	if err := a.writes.WaitContext(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Gave up waiting for history writes")
	}
	a.notifier.Wait()
}

func (a *app) requestContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*a.cfg.Client.RequestTimeout)
	return logger.WithContext(ctx, a.log), cancel
}

func runBalance(a *app, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	fs.Parse(args)

	ctx, cancel := a.requestContext()
	defer cancel()

	balance, err := a.wallet.FetchBalance(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", wallet.UserMessage(err), err)
	}
	printBalance(os.Stdout, balance)
	return nil
}

func runRecent(a *app, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	fs.Parse(args)

	ctx, cancel := a.requestContext()
	defer cancel()

	txs, err := a.wallet.FetchRecentTransactions(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", wallet.UserMessage(err), err)
	}
	printTransactions(os.Stdout, txs)
	return nil
}

func runSearch(a *app, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	phone := fs.String("phone", "", "Sender phone number (required)")
	amountStr := fs.String("amount", "", "Exact amount in THB, e.g. 150.00")
	fs.Parse(args)

	if *phone == "" {
		return fmt.Errorf("-phone is required")
	}

	var amount *decimal.Decimal
	if *amountStr != "" {
		d, err := decimal.NewFromString(*amountStr)
		if err != nil {
			return fmt.Errorf("invalid -amount %q: %w", *amountStr, err)
		}
		amount = &d
	}

	ctx, cancel := a.requestContext()
	defer cancel()

	records, err := a.wallet.SearchTransfersByPhone(ctx, *phone, amount)
	if err != nil {
		return fmt.Errorf("%s: %w", wallet.UserMessage(err), err)
	}
	printTransfers(os.Stdout, records)
	return nil
}

func runHistory(a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	filter, err := historyFlags(fs, args)
	if err != nil {
		return err
	}

	ctx, cancel := a.requestContext()
	defer cancel()

	result, err := a.reader.Read(ctx, filter)
	if err != nil {
		return err
	}
	printHistory(os.Stdout, result)
	return nil
}

func historyFlags(fs *flag.FlagSet, args []string) (domain.HistoryFilter, error) {
	start := fs.String("start", "", "Start date (YYYY-MM-DD)")
	end := fs.String("end", "", "End date (YYYY-MM-DD)")
	phone := fs.String("phone", "", "Only records for this phone number")
	limit := fs.Int("limit", history.DefaultLimit, "Maximum number of records")
	fs.Parse(args)

	filter := domain.HistoryFilter{PhoneNumber: *phone, Limit: *limit}
	for _, d := range []struct {
		value string
		dst   **time.Time
	}{{*start, &filter.StartDate}, {*end, &filter.EndDate}} {
		if d.value == "" {
			continue
		}
		t, err := time.Parse(domain.DateLayout, d.value)
		if err != nil {
			return filter, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", d.value)
		}
		*d.dst = &t
	}
	return filter, nil
}

func maintenanceFlags(fs *flag.FlagSet) (source, term *string) {
	source = fs.String("source", string(domain.SourceTransferSearch), "Source type: recent_transactions, transfer_search or dashboard_transactions")
	term = fs.String("term", "", "Only rows whose description contains this text")
	return source, term
}

func runPreview(a *app, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	source, term := maintenanceFlags(fs)
	fs.Parse(args)

	ctx, cancel := a.requestContext()
	defer cancel()

	result, err := a.maint.Preview(ctx, *term, domain.SourceType(*source))
	if err != nil {
		return err
	}
	printPreview(os.Stdout, result)
	return nil
}

func runClear(a *app, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	source, term := maintenanceFlags(fs)
	yes := fs.Bool("yes", false, "Delete without showing a preview first")
	fs.Parse(args)

	ctx, cancel := a.requestContext()
	defer cancel()

	if !*yes {
		preview, err := a.maint.Preview(ctx, *term, domain.SourceType(*source))
		if err != nil {
			return err
		}
		printPreview(os.Stdout, preview)
		fmt.Println("\nRe-run with -yes to delete these records.")
		return nil
	}

	result, err := a.maint.Clear(ctx, domain.SourceType(*source), *term)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func runExports(a *app, args []string) error {
	fs := flag.NewFlagSet("exports", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of exports (server default when 0)")
	fs.Parse(args)

	ctx, cancel := a.requestContext()
	defer cancel()

	exports, err := a.maint.ListExports(ctx, *limit)
	if err != nil {
		return err
	}
	printExports(os.Stdout, exports)
	return nil
}

func runExport(a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dateStr := fs.String("date", time.Now().AddDate(0, 0, -1).Format(domain.DateLayout), "Date to export (YYYY-MM-DD), defaults to yesterday")
	format := fs.String("format", "csv", "csv or xlsx")
	fs.Parse(args)

	date, err := time.Parse(domain.DateLayout, *dateStr)
	if err != nil {
		return fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", *dateStr)
	}

	ctx, cancel := a.requestContext()
	defer cancel()

	accepted, err := a.maint.RequestExport(ctx, date, *format)
	if err != nil {
		return err
	}
	fmt.Printf("Export for %s queued as job %s (%s)\n", *dateStr, accepted.JobID, accepted.Status)
	return nil
}

func runSettings(a *app, args []string) error {
	current := a.settings.Current()

	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	proxy := fs.String("proxy", current.ProxyURL, "Request proxy URL")
	token := fs.String("token", current.Token, "Wallet bearer token")
	balanceURL := fs.String("balance-url", current.BalanceURL, "Balance endpoint")
	transactionsURL := fs.String("transactions-url", current.TransactionsURL, "Transactions endpoint")
	searchURL := fs.String("search-url", current.SearchURL, "Transfer search endpoint")
	fs.Parse(args)

	if fs.NFlag() == 0 {
		printSettings(os.Stdout, current)
		return nil
	}

	next := config.WalletSettings{
		ProxyURL:        *proxy,
		Token:           *token,
		BalanceURL:      *balanceURL,
		TransactionsURL: *transactionsURL,
		SearchURL:       *searchURL,
	}
	if err := a.settings.Replace(next); err != nil {
		return err
	}
	fmt.Printf("Saved settings to %s\n", a.cfg.SettingsPath)
	printSettings(os.Stdout, next)
	return nil
}

func runWatch(a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", a.cfg.Client.PollInterval, "Polling interval")
	filter, err := historyFlags(fs, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := dashboard.New(a.wallet, a.reader, dashboard.Options{
		Notifier:     a.notifier,
		Logger:       logger.Component(a.log, "dashboard"),
		PollInterval: *interval,
		Filter:       filter,
		OnUpdate: func(s dashboard.Snapshot) {
			printSnapshot(os.Stdout, s)
		},
	})

	a.log.Info().Dur("interval", *interval).Msg("Watching wallet, press Ctrl+C to stop")
	return d.Run(ctx)
}
