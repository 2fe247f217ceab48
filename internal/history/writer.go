package history

import (
	"context"
	"net/http"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
	"github.com/rs/zerolog"
)

// Saver persists one record on a best-effort basis.
type Saver interface {
	Save(ctx context.Context, tx domain.NormalizedTransaction) bool
}

// Writer appends records through save-transaction-history. It never returns
// an error: every failure is logged and reported as false. Nothing is
// retried and no idempotency key is sent, so repeated calls store
// repeated rows.
type Writer struct {
	client *Client
	log    zerolog.Logger
}

// NewWriter creates a Writer.
func NewWriter(client *Client, log zerolog.Logger) *Writer {
	return &Writer{client: client, log: log}
}

// Save implements Saver.
func (w *Writer) Save(ctx context.Context, tx domain.NormalizedTransaction) bool {
	var resp SaveResponse
	if err := w.client.do(ctx, http.MethodPost, PathSave, nil, tx, &resp); err != nil {
		w.log.Warn().
			Err(err).
			Str("transaction_id", tx.TransactionID).
			Str("source_type", string(tx.SourceType)).
			Msg("Failed to save transaction history")
		return false
	}
	if resp.Error != "" {
		w.log.Warn().
			Str("error", resp.Error).
			Str("transaction_id", tx.TransactionID).
			Msg("Transaction history rejected by backend")
		return false
	}

	w.log.Debug().
		Str("transaction_id", tx.TransactionID).
		Str("row_id", resp.ID).
		Msg("Saved transaction history")
	return true
}

var _ Saver = (*Writer)(nil)
