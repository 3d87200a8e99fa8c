package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingLot is an open purchase waiting to be matched against sales.
type HoldingLot struct {
	Symbol        string          `json:"symbol"`
	Amount        decimal.Decimal `json:"amount"`
	UnitCostBasis decimal.Decimal `json:"unitCostBasis"`
	AcquiredAt    time.Time       `json:"acquiredAt"`
	TransactionID string          `json:"transactionId,omitempty"`
}

// TaxableEvent is one FIFO-matched portion of a sale.
type TaxableEvent struct {
	Symbol            string          `json:"symbol"`
	AmountSold        decimal.Decimal `json:"amount"`
	SellPrice         decimal.Decimal `json:"sellPrice"`
	MatchedBuyPrice   decimal.Decimal `json:"buyPrice"`
	RealizedProfit    decimal.Decimal `json:"profit"`
	Date              time.Time       `json:"date"`
	SellTransactionID string          `json:"sellTransactionId,omitempty"`
	BuyTransactionID  string          `json:"buyTransactionId,omitempty"`
}

// TaxReport bundles the taxable events of a user with their totals.
type TaxReport struct {
	TaxableEvents       []TaxableEvent  `json:"taxableEvents"`
	TotalProceeds       decimal.Decimal `json:"totalProceeds"`
	TotalCostBasis      decimal.Decimal `json:"totalCostBasis"`
	TotalRealizedProfit decimal.Decimal `json:"totalRealizedProfit"`
}
