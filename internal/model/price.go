package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedPrice is one entry of the price cache.
type CachedPrice struct {
	Symbol    string          `json:"symbol"`
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
