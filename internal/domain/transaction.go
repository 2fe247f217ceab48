package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType tags a persisted record with the feature that produced it.
// The delete and preview endpoints filter on it.
type SourceType string

const (
	SourceRecentTransactions    SourceType = "recent_transactions"
	SourceTransferSearch        SourceType = "transfer_search"
	SourceDashboardTransactions SourceType = "dashboard_transactions"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceRecentTransactions, SourceTransferSearch, SourceDashboardTransactions:
		return true
	}
	return false
}

// UnspecifiedPhone replaces a missing counterparty phone number.
const UnspecifiedPhone = "unspecified"

// NormalizedTransaction is the canonical record shape every upstream payload
// is mapped into before it is displayed and persisted.
// The JSON tags match the save-transaction-history request body.
type NormalizedTransaction struct {
	PhoneNumber     string          `json:"phoneNumber"`
	Amount          decimal.Decimal `json:"amount"` // major units, never negative
	TransactionID   string          `json:"transactionId"`
	TransactionTime time.Time       `json:"transactionTime"`
	Description     string          `json:"description,omitempty"`
	SourceType      SourceType      `json:"sourceType,omitempty"`
}

// TransferRecord is the display view of one transfer-search result.
type TransferRecord struct {
	ID             string          `json:"id"`
	FromName       string          `json:"fromName"`
	ToName         string          `json:"toName,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount *int64          `json:"originalAmount,omitempty"` // minor units as received
	Datetime       time.Time       `json:"datetime"`
	SearchTime     time.Time       `json:"searchTime"`
	Status         string          `json:"status"`
	Reference      string          `json:"reference,omitempty"`
	EventType      string          `json:"eventType,omitempty"`
}
