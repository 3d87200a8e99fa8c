package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of a ledger entry.
type TransactionType string

const (
	TransactionBuy      TransactionType = "BUY"
	TransactionSell     TransactionType = "SELL"
	TransactionTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is one of the known transaction kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionTransfer:
		return true
	}
	return false
}

// Transaction is an immutable entry of a user's transaction log.
// Logs are ordered by Timestamp, ties broken by insertion order.
type Transaction struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId"`
	CounterpartyID string          `json:"counterpartyId,omitempty"`
	Symbol         string          `json:"symbol"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Timestamp      time.Time       `json:"timestamp"`
}

// TransferResult is returned after moving units between two users.
type TransferResult struct {
	Transaction      Transaction     `json:"transaction"`
	SenderHolding    CachedHolding   `json:"senderHolding"`
	ReceiverHolding  CachedHolding   `json:"receiverHolding"`
	TransactionPrice decimal.Decimal `json:"transactionPrice"`
}

// TransactionFilters narrows a transaction listing. Zero values match everything.
type TransactionFilters struct {
	Symbols   []string
	Types     []TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	// SortDir is "asc" (log order) or "desc".
	SortDir string
}

// Match reports whether t passes every filter.
func (f TransactionFilters) Match(t Transaction) bool {
	if len(f.Symbols) > 0 && !slices.Contains(f.Symbols, t.Symbol) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, t.Type) {
		return false
	}
	if f.StartDate != nil && t.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Timestamp.After(*f.EndDate) {
		return false
	}
	return true
}
