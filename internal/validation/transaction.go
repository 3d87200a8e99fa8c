package validation

import (
	"fmt"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// ValidateCreateTransaction validates a transaction creation request.
// The symbol is expected to be normalized already.
//
// Required fields:
//   - symbol: a lowercase asset id
//   - type: BUY or SELL (transfers have their own endpoint)
//   - amount: must be positive
//
// Optional fields:
//   - unitPrice: must not be negative if provided
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	if req.Symbol == "" {
		errors["symbol"] = "symbol is required"
	} else if ValidateSymbol(req.Symbol) != nil {
		errors["symbol"] = fmt.Sprintf("invalid symbol: %s", req.Symbol)
	}

	switch model.TransactionType(req.Type) {
	case model.TransactionBuy, model.TransactionSell:
	case "":
		errors["type"] = "type is required"
	default:
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	if req.Amount == nil {
		errors["amount"] = "amount is required"
	} else if !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}

	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		errors["unitPrice"] = "unitPrice cannot be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateTransfer validates a transfer request.
func ValidateTransfer(req request.TransferRequest) error {
	errors := make(map[string]string)

	if ValidateUUID(req.ReceiverID) != nil {
		errors["receiverId"] = "receiverId must be a valid UUID"
	}

	if req.Symbol == "" {
		errors["symbol"] = "symbol is required"
	} else if ValidateSymbol(req.Symbol) != nil {
		errors["symbol"] = fmt.Sprintf("invalid symbol: %s", req.Symbol)
	}

	if req.Amount == nil {
		errors["amount"] = "amount is required"
	} else if !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
