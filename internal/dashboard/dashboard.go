// Package dashboard holds the display state of the wallet dashboard and keeps
// it fresh with independent polling loops and refresh notifications.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/config"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/dvloznov/wallet-dashboard/internal/notify"
	"github.com/dvloznov/wallet-dashboard/internal/wallet"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	keyBalance         = "balance"
	keyBalanceErr      = "balance_error"
	keyTransactions    = "transactions"
	keyTransactionsErr = "transactions_error"
	keyHistory         = "history"
	keyHistoryErr      = "history_error"
	keyLastUpdated     = "last_updated"
)

// WalletSource is the part of wallet.Client the dashboard reads from.
type WalletSource interface {
	FetchBalance(ctx context.Context) (*domain.BalanceSnapshot, error)
	FetchDashboardTransactions(ctx context.Context) ([]domain.NormalizedTransaction, error)
}

// Snapshot is a copy of the current display state. Error fields hold the
// user-facing message of the last failed fetch of that panel.
type Snapshot struct {
	Balance           *domain.BalanceSnapshot
	BalanceError      string
	Transactions      []domain.NormalizedTransaction
	TransactionsError string
	History           *domain.HistoryResult
	HistoryError      string
	LastUpdated       time.Time
}

// Options configures a Dashboard.
type Options struct {
	Notifier     *notify.Notifier
	Logger       zerolog.Logger
	PollInterval time.Duration
	Filter       domain.HistoryFilter
	// OnUpdate, when set, is called with a fresh Snapshot after every
	// completed refresh.
	OnUpdate func(Snapshot)
	Now      func() time.Time
}

// Dashboard owns the display state. Each panel is replaced wholesale.
type Dashboard struct {
	wallet   WalletSource
	reader   history.Reader
	notifier *notify.Notifier
	log      zerolog.Logger
	interval time.Duration
	onUpdate func(Snapshot)
	now      func() time.Time

	state *cache.Cache

	filterMu sync.RWMutex
	filter   domain.HistoryFilter
}

// New creates a Dashboard.
func New(source WalletSource, reader history.Reader, opts Options) *Dashboard {
	d := &Dashboard{
		wallet:   source,
		reader:   reader,
		notifier: opts.Notifier,
		log:      opts.Logger,
		interval: opts.PollInterval,
		onUpdate: opts.OnUpdate,
		now:      opts.Now,
		state:    cache.New(cache.NoExpiration, 0),
		filter:   opts.Filter,
	}
	if d.interval <= 0 {
		d.interval = config.DefaultPollInterval
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// SetFilter replaces the history filter used by RefreshHistory.
func (d *Dashboard) SetFilter(f domain.HistoryFilter) {
	d.filterMu.Lock()
	d.filter = f
	d.filterMu.Unlock()
}

func (d *Dashboard) currentFilter() domain.HistoryFilter {
	d.filterMu.RLock()
	defer d.filterMu.RUnlock()
	return d.filter
}

// Refresh fetches balance and transactions concurrently and records the
// last-updated time once both have settled. A failed panel keeps its
// previous data and shows the error.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var (
		wg                 sync.WaitGroup
		balanceErr, txnErr error
		balance            *domain.BalanceSnapshot
		transactions       []domain.NormalizedTransaction
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		balance, balanceErr = d.wallet.FetchBalance(ctx)
	}()
	go func() {
		defer wg.Done()
		transactions, txnErr = d.wallet.FetchDashboardTransactions(ctx)
	}()
	wg.Wait()

	if balanceErr != nil {
		d.log.Warn().Err(balanceErr).Msg("Balance refresh failed")
		d.state.Set(keyBalanceErr, wallet.UserMessage(balanceErr), cache.NoExpiration)
	} else {
		d.state.Set(keyBalance, balance, cache.NoExpiration)
		d.state.Delete(keyBalanceErr)
	}

	if txnErr != nil {
		d.log.Warn().Err(txnErr).Msg("Transactions refresh failed")
		d.state.Set(keyTransactionsErr, wallet.UserMessage(txnErr), cache.NoExpiration)
	} else {
		d.state.Set(keyTransactions, transactions, cache.NoExpiration)
		d.state.Delete(keyTransactionsErr)
	}

	d.state.Set(keyLastUpdated, d.now(), cache.NoExpiration)
	d.publish()
	return errors.Join(balanceErr, txnErr)
}

// RefreshHistory re-queries the history reader with the current filter.
func (d *Dashboard) RefreshHistory(ctx context.Context) error {
	result, err := d.reader.Read(ctx, d.currentFilter())
	if err != nil {
		d.log.Warn().Err(err).Msg("History refresh failed")
		d.state.Set(keyHistoryErr, err.Error(), cache.NoExpiration)
		d.publish()
		return err
	}

	d.state.Set(keyHistory, result, cache.NoExpiration)
	d.state.Delete(keyHistoryErr)
	d.publish()
	return nil
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() Snapshot {
	var s Snapshot
	if v, ok := d.state.Get(keyBalance); ok {
		s.Balance = v.(*domain.BalanceSnapshot)
	}
	if v, ok := d.state.Get(keyTransactions); ok {
		s.Transactions = v.([]domain.NormalizedTransaction)
	}
	if v, ok := d.state.Get(keyHistory); ok {
		s.History = v.(*domain.HistoryResult)
	}
	if v, ok := d.state.Get(keyLastUpdated); ok {
		s.LastUpdated = v.(time.Time)
	}
	s.BalanceError = d.stringValue(keyBalanceErr)
	s.TransactionsError = d.stringValue(keyTransactionsErr)
	s.HistoryError = d.stringValue(keyHistoryErr)
	return s
}

func (d *Dashboard) stringValue(key string) string {
	if v, ok := d.state.Get(key); ok {
		return v.(string)
	}
	return ""
}

func (d *Dashboard) publish() {
	if d.onUpdate != nil {
		d.onUpdate(d.Snapshot())
	}
}

// Run refreshes everything once, then keeps two uncoordinated loops going
// (wallet panels and history report) and re-queries history on every
// refresh notification. It returns when ctx is cancelled and all loops
// have stopped.
func (d *Dashboard) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if d.notifier != nil {
		unsubscribe := d.notifier.Subscribe(func(ev notify.Event) {
			if ctx.Err() != nil {
				return
			}
			d.log.Debug().Str("source", ev.Source).Msg("Refresh notification received")
			d.RefreshHistory(ctx)
		})
		defer unsubscribe()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		d.poll(ctx, "wallet", func(ctx context.Context) { d.Refresh(ctx) })
	}()
	go func() {
		defer wg.Done()
		d.poll(ctx, "history", func(ctx context.Context) { d.RefreshHistory(ctx) })
	}()

	wg.Wait()
	return nil
}

func (d *Dashboard) poll(ctx context.Context, name string, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Debug().Str("loop", name).Msg("Polling stopped")
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
