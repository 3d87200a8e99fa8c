package coingecko

import "github.com/shopspring/decimal"

// SimplePriceResponse is the body of /simple/price: asset id to currency to price.
//
//	{"bitcoin": {"usd": 67187.33}, "ethereum": {"usd": 3500.1}}
type SimplePriceResponse map[string]map[string]decimal.Decimal
