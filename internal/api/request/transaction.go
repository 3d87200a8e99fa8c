package request

import "github.com/shopspring/decimal"

// CreateTransactionRequest records a BUY or SELL. UnitPrice is optional; the
// live price in the user's currency is used when it is omitted.
type CreateTransactionRequest struct {
	Symbol    string           `json:"symbol"`
	Type      string           `json:"type"`
	Amount    *decimal.Decimal `json:"amount"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type TransferRequest struct {
	ReceiverID string           `json:"receiverId"`
	Symbol     string           `json:"symbol"`
	Amount     *decimal.Decimal `json:"amount"`
}
