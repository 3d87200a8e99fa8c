package service

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// TransactionService appends to the transaction log and keeps the cached
// holdings projection in step with it.
//
// Every write is a read-modify-write on one user: the user's version is read,
// the candidate log is checked, the entry is appended and the version bumped
// with a compare-and-set, all in one SQL transaction. A writer that lost a
// race gets apperrors.ErrConcurrentModification and nothing is stored.
type TransactionService struct {
	db              *sql.DB
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	holdingRepo     *repository.HoldingRepository
	prices          PriceSource
	logger          *logging.Logger
	now             func() time.Time
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	db *sql.DB,
	userRepo *repository.UserRepository,
	transactionRepo *repository.TransactionRepository,
	holdingRepo *repository.HoldingRepository,
	prices PriceSource,
	logger *logging.Logger,
) *TransactionService {
	return &TransactionService{
		db:              db,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		holdingRepo:     holdingRepo,
		prices:          prices,
		logger:          logger,
		now:             time.Now,
	}
}

// ListTransactions returns the user's log, including incoming transfers,
// narrowed by filters. Log order is kept unless SortDir is "desc".
func (s *TransactionService) ListTransactions(ctx context.Context, userID string, filters model.TransactionFilters) ([]model.Transaction, error) {
	all, err := s.transactionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions := make([]model.Transaction, 0, len(all))
	for _, t := range all {
		if filters.Match(t) {
			transactions = append(transactions, t)
		}
	}
	if filters.SortDir == "desc" {
		slices.Reverse(transactions)
	}
	return transactions, nil
}

// GetTransaction returns one transaction visible to the user.
func (s *TransactionService) GetTransaction(ctx context.Context, userID, transactionID string) (model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, userID, transactionID)
}

// livePrice looks up one symbol, failing with apperrors.ErrPriceNotFound when
// the feed answered without it.
func (s *TransactionService) livePrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	prices, err := s.prices.GetPrices(ctx, []string{symbol}, currency)
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrPriceNotFound, symbol)
	}
	return price, nil
}

// CreateTransaction records a BUY or SELL for the user.
//
// When the request has no unit price the live price in the user's default
// currency is used. A SELL is replayed through FIFO lot matching against the
// existing log first; one that exceeds the open lots fails with an
// *apperrors.InsufficientHoldingsError and nothing is written.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, req request.CreateTransactionRequest) (model.Transaction, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.Transaction{}, err
	}

	// Price lookups happen before the SQL transaction so no network call holds the connection.
	var unitPrice decimal.Decimal
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	} else if unitPrice, err = s.livePrice(ctx, req.Symbol, user.DefaultCurrency); err != nil {
		return model.Transaction{}, err
	}

	candidate := model.Transaction{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Symbol:    req.Symbol,
		Type:      model.TransactionType(req.Type),
		Amount:    *req.Amount,
		UnitPrice: unitPrice,
		Timestamp: s.now().UTC(),
	}
	if err := checkTransaction(candidate); err != nil {
		return model.Transaction{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	txRepo := s.transactionRepo.WithTx(tx)

	history, err := txRepo.ListByUser(ctx, userID)
	if err != nil {
		return model.Transaction{}, err
	}
	if candidate.Type == model.TransactionSell {
		// Replaying the whole log keeps the rejection consistent with the tax report.
		if _, err := ComputeTaxableEvents(append(ownedBy(history, userID), candidate)); err != nil {
			s.logger.Info().Err(err).Str("user_id", userID).Str("symbol", candidate.Symbol).Msg("sell rejected")
			return model.Transaction{}, err
		}
	}

	stored, err := txRepo.Append(ctx, candidate)
	if err != nil {
		return model.Transaction{}, err
	}

	delta := candidate.Amount
	if candidate.Type == model.TransactionSell {
		delta = delta.Neg()
	}
	if _, err := s.holdingRepo.WithTx(tx).Adjust(ctx, userID, candidate.Symbol, delta, candidate.Timestamp); err != nil {
		return model.Transaction{}, err
	}

	if err := s.userRepo.WithTx(tx).CommitWrite(ctx, userID, user.Version, 1); err != nil {
		return model.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Transaction{}, fmt.Errorf("%w: failed to commit transaction: %w", apperrors.ErrStorage, err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("transaction_id", stored.ID).
		Str("type", string(stored.Type)).
		Str("symbol", stored.Symbol).
		Msg("transaction recorded")
	return stored, nil
}

// Transfer moves units of a symbol from the sender's cached holdings to the
// receiver's, priced at the live unit price in the sender's currency. The
// TRANSFER entry is recorded in the log but does not move FIFO lots.
func (s *TransactionService) Transfer(ctx context.Context, senderID string, req request.TransferRequest) (model.TransferResult, error) {
	if senderID == req.ReceiverID {
		return model.TransferResult{}, apperrors.ErrSelfTransfer
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return model.TransferResult{}, err
	}
	receiver, err := s.userRepo.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return model.TransferResult{}, fmt.Errorf("receiver: %w", err)
	}

	price, err := s.livePrice(ctx, req.Symbol, sender.DefaultCurrency)
	if err != nil {
		return model.TransferResult{}, err
	}

	transfer := model.Transaction{
		ID:             uuid.New().String(),
		OwnerID:        senderID,
		CounterpartyID: receiver.ID,
		Symbol:         req.Symbol,
		Type:           model.TransactionTransfer,
		Amount:         *req.Amount,
		UnitPrice:      price,
		Timestamp:      s.now().UTC(),
	}
	if err := checkTransaction(transfer); err != nil {
		return model.TransferResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TransferResult{}, fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	holdingRepo := s.holdingRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)

	held, err := holdingRepo.Get(ctx, senderID, req.Symbol)
	if err != nil {
		return model.TransferResult{}, err
	}
	if held.Amount.LessThan(transfer.Amount) {
		return model.TransferResult{}, &apperrors.InsufficientHoldingsError{
			Symbol:        req.Symbol,
			Requested:     transfer.Amount,
			Shortfall:     transfer.Amount.Sub(held.Amount),
			TransactionID: transfer.ID,
		}
	}

	stored, err := s.transactionRepo.WithTx(tx).Append(ctx, transfer)
	if err != nil {
		return model.TransferResult{}, err
	}

	senderHolding, err := holdingRepo.Adjust(ctx, senderID, req.Symbol, transfer.Amount.Neg(), transfer.Timestamp)
	if err != nil {
		return model.TransferResult{}, err
	}
	receiverHolding, err := holdingRepo.Adjust(ctx, receiver.ID, req.Symbol, transfer.Amount, transfer.Timestamp)
	if err != nil {
		return model.TransferResult{}, err
	}

	if err := userRepo.CommitWrite(ctx, senderID, sender.Version, 1); err != nil {
		return model.TransferResult{}, err
	}
	if err := userRepo.CommitWrite(ctx, receiver.ID, receiver.Version, 0); err != nil {
		return model.TransferResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.TransferResult{}, fmt.Errorf("%w: failed to commit transaction: %w", apperrors.ErrStorage, err)
	}

	s.logger.Info().
		Str("sender_id", senderID).
		Str("receiver_id", receiver.ID).
		Str("symbol", req.Symbol).
		Str("amount", transfer.Amount.String()).
		Msg("transfer recorded")

	return model.TransferResult{
		Transaction:      stored,
		SenderHolding:    senderHolding,
		ReceiverHolding:  receiverHolding,
		TransactionPrice: price,
	}, nil
}
