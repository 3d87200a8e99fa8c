package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// ValuationService values a user's holdings at current prices.
type ValuationService struct {
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	prices          PriceSource
}

// NewValuationService creates a new ValuationService.
func NewValuationService(
	userRepo *repository.UserRepository,
	transactionRepo *repository.TransactionRepository,
	prices PriceSource,
) *ValuationService {
	return &ValuationService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		prices:          prices,
	}
}

// ComputePnL returns the unrealized profit and loss of the user in their
// default currency.
//
// An empty history yields zeros without any price lookup. Prices for all held
// symbols are fetched in one batch; a symbol the feed does not know is valued
// at zero and flagged, while an unreachable feed fails the whole computation.
// The cost basis is the aggregate snapshot cost over every symbol, including
// fully sold ones.
func (s *ValuationService) ComputePnL(ctx context.Context, userID string) (model.ProfitAndLoss, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.ProfitAndLoss{}, err
	}

	result := model.ProfitAndLoss{
		Currency:     user.DefaultCurrency,
		CurrentValue: decimal.Zero,
		CostBasis:    decimal.Zero,
		ProfitOrLoss: decimal.Zero,
		Holdings:     []model.HoldingValuation{},
	}

	transactions, err := s.transactionRepo.ListByUser(ctx, userID)
	if err != nil {
		return model.ProfitAndLoss{}, err
	}
	transactions = ownedBy(transactions, userID)
	if len(transactions) == 0 {
		return result, nil
	}

	snapshot, err := ComputeHoldings(transactions)
	if err != nil {
		return model.ProfitAndLoss{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToComputePnL, err)
	}

	held := nonZeroSymbols(snapshot)
	prices := map[string]decimal.Decimal{}
	if len(held) > 0 {
		if prices, err = s.prices.GetPrices(ctx, held, user.DefaultCurrency); err != nil {
			return model.ProfitAndLoss{}, err
		}
	}

	for _, symbol := range held {
		h := snapshot[symbol]
		price, ok := prices[symbol]
		if !ok {
			price = decimal.Zero
		}
		value := h.Amount.Mul(price)

		result.CurrentValue = result.CurrentValue.Add(value)
		result.Holdings = append(result.Holdings, model.HoldingValuation{
			Symbol:       symbol,
			Amount:       h.Amount,
			CostBasis:    h.CostBasis,
			CurrentPrice: price,
			CurrentValue: value,
			PriceMissing: !ok,
		})
	}

	result.CostBasis = sumCostBasis(snapshot)
	result.ProfitOrLoss = result.CurrentValue.Sub(result.CostBasis)
	return result, nil
}

// ownedBy drops incoming transfers, keeping the transactions userID recorded.
func ownedBy(transactions []model.Transaction, userID string) []model.Transaction {
	owned := make([]model.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.OwnerID == userID {
			owned = append(owned, tx)
		}
	}
	return owned
}
