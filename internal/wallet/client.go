// Package wallet reads balance, received transactions and transfer searches
// from the upstream wallet API through the request proxy. Every read also
// persists what it saw through detached best-effort history writes.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/config"
	"github.com/dvloznov/wallet-dashboard/internal/detach"
	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/dvloznov/wallet-dashboard/internal/history"
	"github.com/dvloznov/wallet-dashboard/internal/normalize"
	"github.com/dvloznov/wallet-dashboard/internal/notify"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SystemCodeOK is the upstream system_code of a fully successful call.
const SystemCodeOK = 1000

// ErrInvalidPhone is returned by SearchTransfersByPhone for an empty phone.
var ErrInvalidPhone = errors.New("phone number is required")

// Options wires the collaborators of a Client. Saver, Writes and Notifier
// may be nil, in which case the matching side effect is skipped.
type Options struct {
	Saver        history.Saver
	Writes       *detach.Group
	Notifier     *notify.Notifier
	Logger       zerolog.Logger
	HTTPClient   *http.Client
	Timeout      time.Duration
	RefreshDelay time.Duration
	Now          func() time.Time
}

// Client talks to the wallet API. Settings are read from the Provider on
// every call, so a replaced configuration takes effect on the next request.
type Client struct {
	settings     config.Provider
	saver        history.Saver
	writes       *detach.Group
	notifier     *notify.Notifier
	log          zerolog.Logger
	httpClient   *http.Client
	timeout      time.Duration
	refreshDelay time.Duration
	now          func() time.Time
}

// NewClient creates a Client.
func NewClient(settings config.Provider, opts Options) *Client {
	c := &Client{
		settings:     settings,
		saver:        opts.Saver,
		writes:       opts.Writes,
		notifier:     opts.Notifier,
		log:          opts.Logger,
		httpClient:   opts.HTTPClient,
		timeout:      opts.Timeout,
		refreshDelay: opts.RefreshDelay,
		now:          opts.Now,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultRequestTimeout
	}
	if c.refreshDelay <= 0 {
		c.refreshDelay = config.DefaultRefreshDelay
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// FetchBalance returns the current wallet balance.
func (c *Client) FetchBalance(ctx context.Context) (*domain.BalanceSnapshot, error) {
	const op = "FetchBalance"
	settings := c.settings.Current()

	body, err := c.call(ctx, op, settings, settings.BalanceURL)
	if err != nil {
		return nil, err
	}
	c.checkSystemCode(op, body)

	data, ok := body["data"].(map[string]any)
	if !ok {
		return nil, &UpstreamError{Op: op, Kind: KindMalformed, Message: "missing data object"}
	}
	raw, ok := data["balance"]
	if !ok || raw == nil {
		return nil, &UpstreamError{Op: op, Kind: KindMalformed, Message: "missing data.balance"}
	}

	return &domain.BalanceSnapshot{
		CurrentBalance: normalize.MinorToMajor(raw),
		Currency:       domain.Currency,
		Timestamp:      c.now(),
	}, nil
}

// FetchRecentTransactions returns the last received transactions and saves
// each of them in the background.
func (c *Client) FetchRecentTransactions(ctx context.Context) ([]domain.NormalizedTransaction, error) {
	return c.fetchTransactions(ctx, "FetchRecentTransactions", domain.SourceRecentTransactions)
}

// FetchDashboardTransactions is FetchRecentTransactions for the dashboard
// panel; records are tagged dashboard_transactions.
func (c *Client) FetchDashboardTransactions(ctx context.Context) ([]domain.NormalizedTransaction, error) {
	return c.fetchTransactions(ctx, "FetchDashboardTransactions", domain.SourceDashboardTransactions)
}

func (c *Client) fetchTransactions(ctx context.Context, op string, source domain.SourceType) ([]domain.NormalizedTransaction, error) {
	settings := c.settings.Current()

	body, err := c.call(ctx, op, settings, settings.TransactionsURL)
	if err != nil {
		return nil, err
	}
	c.checkSystemCode(op, body)

	raw := itemsOf(body["data"])
	items := make([]normalize.Item, 0, len(raw))
	for _, fields := range raw {
		items = append(items, normalize.RecentItem{Fields: fields, Source: source})
	}

	txs := normalize.MapBatch(items, c.now())
	c.saveDetached(txs)

	c.log.Debug().Str("op", op).Int("count", len(txs)).Msg("Fetched wallet transactions")
	return txs, nil
}

// SearchTransfersByPhone looks up transfers received from phone, optionally
// narrowed to amount (major units). Results are saved in the background and
// a refresh notification is scheduled once the writes are spawned.
func (c *Client) SearchTransfersByPhone(ctx context.Context, phone string, amount *decimal.Decimal) ([]domain.TransferRecord, error) {
	const op = "SearchTransfersByPhone"

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPhone)
	}

	settings := c.settings.Current()
	target, err := searchURL(settings.SearchURL, phone, amount)
	if err != nil {
		return nil, &UpstreamError{Op: op, Kind: KindNetwork, Message: "invalid search URL", Err: err}
	}

	body, err := c.call(ctx, op, settings, target)
	if err != nil {
		return nil, err
	}
	c.checkSystemCode(op, body)

	raw := searchItemsOf(body["data"])
	if len(raw) == 0 {
		return []domain.TransferRecord{}, nil
	}

	searchTime := c.now()
	records := make([]domain.TransferRecord, 0, len(raw))
	txs := make([]domain.NormalizedTransaction, 0, len(raw))
	for i, fields := range raw {
		item := normalize.SearchItem{Fields: fields, SearchedPhone: phone}
		records = append(records, normalize.ToTransferRecord(item, i, searchTime))
		txs = append(txs, normalize.Map(item, i, searchTime))
	}

	c.saveDetached(txs)

	if c.notifier != nil {
		c.notifier.PublishAfter(c.refreshDelay, notify.Event{
			Source: string(domain.SourceTransferSearch),
			Fields: map[string]any{
				"phone_number": phone,
				"count":        len(records),
			},
		})
	}

	c.log.Info().Str("phone_number", phone).Int("count", len(records)).Msg("Transfer search completed")
	return records, nil
}

// saveDetached spawns one unawaited write per record. The caller's context
// is deliberately not passed on.
func (c *Client) saveDetached(txs []domain.NormalizedTransaction) {
	if c.saver == nil || c.writes == nil {
		return
	}
	for _, tx := range txs {
		c.writes.Go("save "+tx.TransactionID, func(ctx context.Context) {
			c.saver.Save(ctx, tx)
		})
	}
}

func (c *Client) checkSystemCode(op string, body map[string]any) {
	code, ok := systemCode(body)
	if !ok || code == SystemCodeOK {
		return
	}
	msg, _ := body["message"].(string)
	c.log.Warn().Str("op", op).Int("system_code", code).Str("message", msg).Msg("Upstream returned non-success system code")
}

func systemCode(body map[string]any) (int, bool) {
	switch v := body["system_code"].(type) {
	case float64:
		return int(v), true
	case string:
		var code int
		if _, err := fmt.Sscanf(v, "%d", &code); err == nil {
			return code, true
		}
	}
	return 0, false
}

// itemKeys are the fields that make a bare data object a transaction.
var itemKeys = []string{"amount", "transaction_id", "id", "sender_mobile", "sender", "received_time"}

// itemsOf accepts data as a single object or as an array of objects. An
// object with a transactions key, or with none of itemKeys, is not itself
// an item.
func itemsOf(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		if list, ok := v["transactions"]; ok {
			entries, _ := list.([]any)
			return objects(entries)
		}
		for _, k := range itemKeys {
			if _, ok := v[k]; ok {
				return []map[string]any{v}
			}
		}
	case []any:
		return objects(v)
	}
	return nil
}

// searchItemsOf reads data.transactions, falling back to a bare array.
func searchItemsOf(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		if list, ok := v["transactions"].([]any); ok {
			return objects(list)
		}
	case []any:
		return objects(v)
	}
	return nil
}

// objects keeps list length: non-object entries become empty field sets so
// the mapper still emits one record per entry.
func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			fields = map[string]any{}
		}
		out = append(out, fields)
	}
	return out
}

func searchURL(base, phone string, amount *decimal.Decimal) (string, error) {
	if base == "" {
		return "", nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("phone", phone)
	if amount != nil && amount.IsPositive() {
		q.Set("amount", amount.Shift(2).Round(0).String())
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
