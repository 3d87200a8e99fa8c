package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Holding is the aggregate position in one symbol.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	CostBasis decimal.Decimal `json:"costBasis"`
}

// PortfolioSnapshot maps symbol to its aggregate holding. It is derived from
// the transaction log on demand and never persisted.
type PortfolioSnapshot map[string]Holding

// Get returns the holding for symbol, or a zero holding if none was recorded.
func (s PortfolioSnapshot) Get(symbol string) Holding {
	if h, ok := s[symbol]; ok {
		return h
	}
	return Holding{Symbol: symbol, Amount: decimal.Zero, CostBasis: decimal.Zero}
}

// Symbols returns the snapshot's symbols in lexical order.
func (s PortfolioSnapshot) Symbols() []string {
	symbols := make([]string, 0, len(s))
	for symbol := range s {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Holdings returns the snapshot as a slice ordered by symbol.
func (s PortfolioSnapshot) Holdings() []Holding {
	holdings := make([]Holding, 0, len(s))
	for _, symbol := range s.Symbols() {
		holdings = append(holdings, s[symbol])
	}
	return holdings
}

// HoldingValuation is one symbol's contribution to a profit and loss computation.
type HoldingValuation struct {
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	PriceMissing bool            `json:"priceMissing,omitempty"`
}

// ProfitAndLoss is the unrealized P&L of a user's portfolio in their default currency.
type ProfitAndLoss struct {
	Currency     string             `json:"currency"`
	CurrentValue decimal.Decimal    `json:"currentValue"`
	CostBasis    decimal.Decimal    `json:"costBasis"`
	ProfitOrLoss decimal.Decimal    `json:"profitOrLoss"`
	Holdings     []HoldingValuation `json:"holdings"`
}

// HoldingsView pairs the aggregate snapshot with the FIFO open-lot view of the
// same log. The two cost bases diverge after partial sells.
type HoldingsView struct {
	Holdings []Holding    `json:"holdings"`
	OpenLots []HoldingLot `json:"openLots"`
}

// CachedHolding is a row of the per-user holdings projection kept by the store.
type CachedHolding struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

// PortfolioItem is a cached holding valued at the current price.
type PortfolioItem struct {
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	Error        string          `json:"error,omitempty"`
}

// PortfolioView is the response of the portfolio endpoint.
type PortfolioView struct {
	Currency  string          `json:"currency"`
	Portfolio []PortfolioItem `json:"portfolio"`
	Message   string          `json:"message,omitempty"`
}
