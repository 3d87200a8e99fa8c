package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// ComputeHoldings folds an ordered transaction log into the amount and
// aggregate cost basis per symbol.
//
// Transaction Processing Logic:
//   - BUY: adds the amount and amount*unitPrice to the cost basis
//   - SELL: subtracts the amount and amount*unitPrice, using the sale's own
//     price rather than the matched lot cost; this aggregate therefore drifts
//     from the FIFO cost basis of OpenLots after partial sells
//   - TRANSFER: recorded in the log but ignored here
//
// An empty log yields an empty snapshot, whose Get returns zeros for any symbol.
func ComputeHoldings(transactions []model.Transaction) (model.PortfolioSnapshot, error) {
	snapshot := make(model.PortfolioSnapshot)

	for _, tx := range transactions {
		if err := checkTransaction(tx); err != nil {
			return nil, err
		}

		switch tx.Type {
		case model.TransactionBuy:
			h := snapshot.Get(tx.Symbol)
			h.Amount = h.Amount.Add(tx.Amount)
			h.CostBasis = h.CostBasis.Add(tx.Amount.Mul(tx.UnitPrice))
			snapshot[tx.Symbol] = h
		case model.TransactionSell:
			h := snapshot.Get(tx.Symbol)
			h.Amount = h.Amount.Sub(tx.Amount)
			h.CostBasis = h.CostBasis.Sub(tx.Amount.Mul(tx.UnitPrice))
			snapshot[tx.Symbol] = h
		case model.TransactionTransfer:
			// not part of the BUY/SELL cost basis
		}
	}

	return snapshot, nil
}

// checkTransaction guards the engines against malformed log entries.
func checkTransaction(tx model.Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("transaction %s: %w: %q", tx.ID, apperrors.ErrUnknownTransactionType, tx.Type)
	}
	if !tx.Amount.IsPositive() {
		return fmt.Errorf("transaction %s: %w", tx.ID, apperrors.ErrInvalidAmount)
	}
	if tx.UnitPrice.IsNegative() {
		return fmt.Errorf("transaction %s: %w", tx.ID, apperrors.ErrInvalidPrice)
	}
	return nil
}

// nonZeroSymbols returns the symbols of snapshot whose amount is not zero.
func nonZeroSymbols(snapshot model.PortfolioSnapshot) []string {
	var symbols []string
	for _, symbol := range snapshot.Symbols() {
		if !snapshot[symbol].Amount.IsZero() {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// sumCostBasis adds up the cost basis of every symbol in the snapshot.
func sumCostBasis(snapshot model.PortfolioSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, h := range snapshot {
		total = total.Add(h.CostBasis)
	}
	return total
}
