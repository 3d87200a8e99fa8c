package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// PortfolioService serves the derived views of a user's portfolio: the
// aggregate snapshot, open FIFO lots, the tax report and the cached holdings
// valued at current prices.
type PortfolioService struct {
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	holdingRepo     *repository.HoldingRepository
	prices          PriceSource
	logger          *logging.Logger
}

// NewPortfolioService creates a new PortfolioService with the provided repository dependencies.
func NewPortfolioService(
	userRepo *repository.UserRepository,
	transactionRepo *repository.TransactionRepository,
	holdingRepo *repository.HoldingRepository,
	prices PriceSource,
	logger *logging.Logger,
) *PortfolioService {
	return &PortfolioService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		holdingRepo:     holdingRepo,
		prices:          prices,
		logger:          logger,
	}
}

func (s *PortfolioService) loadHistory(ctx context.Context, userID string) ([]model.Transaction, error) {
	transactions, err := s.transactionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ownedBy(transactions, userID), nil
}

// GetHoldings returns the aggregate snapshot next to the open FIFO lots. The
// snapshot cost basis subtracts sales at their sale price while the lots keep
// their purchase cost, so the two differ after partial sells.
func (s *PortfolioService) GetHoldings(ctx context.Context, userID string) (model.HoldingsView, error) {
	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return model.HoldingsView{}, err
	}

	snapshot, err := ComputeHoldings(history)
	if err != nil {
		return model.HoldingsView{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToComputeHoldings, err)
	}
	lots, err := OpenLots(history)
	if err != nil {
		return model.HoldingsView{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToComputeHoldings, err)
	}

	return model.HoldingsView{
		Holdings: snapshot.Holdings(),
		OpenLots: flattenLots(lots),
	}, nil
}

// GetOpenLots returns the lots still open after FIFO matching, by symbol then age.
func (s *PortfolioService) GetOpenLots(ctx context.Context, userID string) ([]model.HoldingLot, error) {
	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	lots, err := OpenLots(history)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToComputeHoldings, err)
	}
	return flattenLots(lots), nil
}

// GetTaxReport returns the realized gains of every sale, one event per
// matched lot. A user without sales gets an empty report.
func (s *PortfolioService) GetTaxReport(ctx context.Context, userID string) (model.TaxReport, error) {
	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return model.TaxReport{}, err
	}
	report, err := BuildTaxReport(history)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("tax report replay failed")
		return model.TaxReport{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGenerateTaxReport, err)
	}
	return report, nil
}

// GetPortfolio values the cached holdings at current prices in the user's
// currency. A failed price lookup does not fail the view: affected items are
// valued at zero and carry an error marker.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) (model.PortfolioView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.PortfolioView{}, err
	}
	holdings, err := s.holdingRepo.List(ctx, userID)
	if err != nil {
		return model.PortfolioView{}, err
	}

	view := model.PortfolioView{
		Currency:  user.DefaultCurrency,
		Portfolio: []model.PortfolioItem{},
	}
	if len(holdings) == 0 {
		view.Message = "Portfolio is empty"
		return view, nil
	}

	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}

	prices, priceErr := s.prices.GetPrices(ctx, symbols, user.DefaultCurrency)
	if priceErr != nil {
		s.logger.Warn().Err(priceErr).Str("user_id", userID).Msg("portfolio prices unavailable")
	}

	for _, h := range holdings {
		item := model.PortfolioItem{
			Symbol:       h.Symbol,
			Amount:       h.Amount,
			CurrentPrice: decimal.Zero,
			TotalValue:   decimal.Zero,
		}
		price, ok := prices[h.Symbol]
		switch {
		case priceErr != nil:
			item.Error = "Price unavailable"
		case !ok:
			item.Error = "Price not found"
		default:
			item.CurrentPrice = price
			item.TotalValue = h.Amount.Mul(price)
		}
		view.Portfolio = append(view.Portfolio, item)
	}
	return view, nil
}

// DeleteSymbol removes a symbol from the cached holdings. The transaction log
// is left untouched.
func (s *PortfolioService) DeleteSymbol(ctx context.Context, userID, symbol string) error {
	if err := s.holdingRepo.Delete(ctx, userID, symbol); err != nil {
		if !errors.Is(err, apperrors.ErrHoldingNotFound) {
			s.logger.Error().Err(err).Str("user_id", userID).Str("symbol", symbol).Msg("failed to delete holding")
		}
		return err
	}
	return nil
}

func flattenLots(lots map[string][]model.HoldingLot) []model.HoldingLot {
	symbols := make([]string, 0, len(lots))
	for symbol := range lots {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	flat := []model.HoldingLot{}
	for _, symbol := range symbols {
		flat = append(flat, lots[symbol]...)
	}
	return flat
}
