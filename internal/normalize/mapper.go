package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/domain"
)

// TransferSearchMarker is embedded in the description of every record that
// came from a transfer search. The clear and preview endpoints match on it,
// so changing it orphans already stored rows.
const TransferSearchMarker = "via transfer search"

const (
	recentIDPrefix = "TXN"
	searchIDPrefix = "TRF"
	unknownEvent   = "unknown"
)

// ItemKind identifies which upstream payload shape an Item carries.
type ItemKind string

const (
	KindRecent ItemKind = "recent"
	KindSearch ItemKind = "search"
)

// Item is one upstream transaction entry. Fields holds the decoded JSON
// object as-is; nothing about its shape is trusted.
type Item interface {
	Kind() ItemKind
	Raw() map[string]any
}

// RecentItem is an entry of the last-received transactions payload.
type RecentItem struct {
	Fields map[string]any
	// Source overrides the default recent_transactions tag.
	Source domain.SourceType
}

func (i RecentItem) Kind() ItemKind      { return KindRecent }
func (i RecentItem) Raw() map[string]any { return i.Fields }

// SearchItem is an entry of a transfer-search payload together with the
// phone number the user searched for.
type SearchItem struct {
	Fields        map[string]any
	SearchedPhone string
}

func (i SearchItem) Kind() ItemKind      { return KindSearch }
func (i SearchItem) Raw() map[string]any { return i.Fields }

// Map converts one upstream item into a NormalizedTransaction. index is the
// item's position in its batch and feeds placeholder ID generation; now is
// used when the item has no usable timestamp. Map never fails: missing
// fields degrade to sentinel values.
func Map(item Item, index int, now time.Time) domain.NormalizedTransaction {
	fields := item.Raw()
	tx := domain.NormalizedTransaction{
		PhoneNumber:     firstString(fields, "sender_mobile", "sender"),
		Amount:          MinorToMajor(fields["amount"]),
		TransactionID:   firstString(fields, "transaction_id", "id"),
		TransactionTime: parseTime(fields, now),
	}
	if tx.PhoneNumber == "" {
		tx.PhoneNumber = domain.UnspecifiedPhone
	}

	switch it := item.(type) {
	case SearchItem:
		if tx.TransactionID == "" {
			tx.TransactionID = placeholderID(searchIDPrefix, index)
		}
		tx.SourceType = domain.SourceTransferSearch
		tx.Description = SearchDescription(counterparty(fields, tx.PhoneNumber), it.SearchedPhone)
	case RecentItem:
		if tx.TransactionID == "" {
			tx.TransactionID = placeholderID(recentIDPrefix, index)
		}
		tx.SourceType = it.Source
		if tx.SourceType == "" {
			tx.SourceType = domain.SourceRecentTransactions
		}
		tx.Description = fmt.Sprintf("Wallet transaction received (%s)", eventType(fields))
	}
	return tx
}

// MapBatch maps every item; the output always has the same length as items.
func MapBatch(items []Item, now time.Time) []domain.NormalizedTransaction {
	out := make([]domain.NormalizedTransaction, 0, len(items))
	for i, item := range items {
		out = append(out, Map(item, i, now))
	}
	return out
}

// SearchDescription builds the description stored for a transfer-search hit.
func SearchDescription(who, searchedPhone string) string {
	return fmt.Sprintf("%s received %s for %s", who, TransferSearchMarker, searchedPhone)
}

// ToTransferRecord builds the display view of a transfer-search item.
func ToTransferRecord(item SearchItem, index int, searchTime time.Time) domain.TransferRecord {
	fields := item.Fields
	rec := domain.TransferRecord{
		ID:         firstString(fields, "transaction_id", "id"),
		FromName:   firstString(fields, "sender_name", "sender_mobile", "sender"),
		ToName:     firstString(fields, "receiver_name", "receiver_mobile", "receiver"),
		Amount:     MinorToMajor(fields["amount"]),
		Datetime:   parseTime(fields, searchTime),
		SearchTime: searchTime,
		Status:     firstString(fields, "status"),
		Reference:  firstString(fields, "reference", "ref"),
		EventType:  firstString(fields, "event_type", "type"),
	}
	if rec.ID == "" {
		rec.ID = placeholderID(searchIDPrefix, index)
	}
	if rec.FromName == "" {
		rec.FromName = domain.UnspecifiedPhone
	}
	if rec.Status == "" {
		rec.Status = "received"
	}
	if minor, ok := MinorInt(fields["amount"]); ok {
		rec.OriginalAmount = &minor
	}
	return rec
}

func placeholderID(prefix string, index int) string {
	return fmt.Sprintf("%s%03d", prefix, index+1)
}

func counterparty(fields map[string]any, phone string) string {
	if name := firstString(fields, "sender_name"); name != "" {
		return name
	}
	return phone
}

func eventType(fields map[string]any) string {
	if t := firstString(fields, "event_type", "type"); t != "" {
		return t
	}
	return unknownEvent
}

// firstString returns the first key holding a non-empty scalar value.
func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(fields map[string]any, fallback time.Time) time.Time {
	for _, k := range []string{"received_time", "date_time", "created_at"} {
		switch v := fields[k].(type) {
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return t
				}
			}
		case float64:
			if v > 0 {
				return time.Unix(int64(v), 0).UTC()
			}
		}
	}
	return fallback
}
