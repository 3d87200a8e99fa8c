package service

import (
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// lotBook holds the open lots of every symbol, oldest first.
type lotBook map[string][]model.HoldingLot

// ComputeTaxableEvents replays an ordered transaction log through FIFO lot
// matching and returns one TaxableEvent per matched lot portion.
//
// A SELL spanning N open lots yields N events in lot order. A SELL that
// exceeds the open lots aborts the whole computation with an
// *apperrors.InsufficientHoldingsError and no events. TRANSFER entries are
// not matched.
func ComputeTaxableEvents(transactions []model.Transaction) ([]model.TaxableEvent, error) {
	events, _, err := replayFIFO(transactions)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// OpenLots returns the lots still open after replaying the log, keyed by symbol.
func OpenLots(transactions []model.Transaction) (map[string][]model.HoldingLot, error) {
	_, book, err := replayFIFO(transactions)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// BuildTaxReport computes the taxable events of the log together with their totals.
func BuildTaxReport(transactions []model.Transaction) (model.TaxReport, error) {
	events, err := ComputeTaxableEvents(transactions)
	if err != nil {
		return model.TaxReport{}, err
	}

	report := model.TaxReport{
		TaxableEvents:       make([]model.TaxableEvent, 0, len(events)),
		TotalProceeds:       decimal.Zero,
		TotalCostBasis:      decimal.Zero,
		TotalRealizedProfit: decimal.Zero,
	}
	for _, e := range events {
		report.TaxableEvents = append(report.TaxableEvents, e)
		report.TotalProceeds = report.TotalProceeds.Add(e.AmountSold.Mul(e.SellPrice))
		report.TotalCostBasis = report.TotalCostBasis.Add(e.AmountSold.Mul(e.MatchedBuyPrice))
		report.TotalRealizedProfit = report.TotalRealizedProfit.Add(e.RealizedProfit)
	}
	return report, nil
}

func replayFIFO(transactions []model.Transaction) ([]model.TaxableEvent, lotBook, error) {
	book := make(lotBook)
	var events []model.TaxableEvent

	for _, tx := range transactions {
		if err := checkTransaction(tx); err != nil {
			return nil, nil, err
		}

		switch tx.Type {
		case model.TransactionBuy:
			book[tx.Symbol] = append(book[tx.Symbol], model.HoldingLot{
				Symbol:        tx.Symbol,
				Amount:        tx.Amount,
				UnitCostBasis: tx.UnitPrice,
				AcquiredAt:    tx.Timestamp,
				TransactionID: tx.ID,
			})
		case model.TransactionSell:
			matched, err := book.sell(tx)
			if err != nil {
				return nil, nil, err
			}
			events = append(events, matched...)
		case model.TransactionTransfer:
			// transfers do not move lots
		}
	}

	for symbol, lots := range book {
		if len(lots) == 0 {
			delete(book, symbol)
		}
	}

	return events, book, nil
}

// sell consumes tx.Amount from the front of the symbol's queue.
func (b lotBook) sell(tx model.Transaction) ([]model.TaxableEvent, error) {
	queue := b[tx.Symbol]
	remaining := tx.Amount
	var events []model.TaxableEvent

	for remaining.IsPositive() {
		if len(queue) == 0 {
			return nil, &apperrors.InsufficientHoldingsError{
				Symbol:        tx.Symbol,
				Requested:     tx.Amount,
				Shortfall:     remaining,
				TransactionID: tx.ID,
			}
		}

		lot := &queue[0]
		matched := decimal.Min(remaining, lot.Amount)

		events = append(events, model.TaxableEvent{
			Symbol:            tx.Symbol,
			AmountSold:        matched,
			SellPrice:         tx.UnitPrice,
			MatchedBuyPrice:   lot.UnitCostBasis,
			RealizedProfit:    matched.Mul(tx.UnitPrice.Sub(lot.UnitCostBasis)),
			Date:              tx.Timestamp,
			SellTransactionID: tx.ID,
			BuyTransactionID:  lot.TransactionID,
		})

		lot.Amount = lot.Amount.Sub(matched)
		if lot.Amount.IsZero() {
			queue = queue[1:]
		}
		remaining = remaining.Sub(matched)
	}

	b[tx.Symbol] = queue
	return events, nil
}
