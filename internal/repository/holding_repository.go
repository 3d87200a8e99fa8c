package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// HoldingRepository maintains the cached per-user holdings projection.
// Rows are removed once their amount reaches zero.
type HoldingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// WithTx returns a new HoldingRepository scoped to the provided transaction.
func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *HoldingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// List returns the cached holdings of a user ordered by symbol.
func (r *HoldingRepository) List(ctx context.Context, userID string) ([]model.CachedHolding, error) {
	rows, err := r.getQuerier().QueryContext(ctx,
		`SELECT symbol, amount FROM holdings WHERE user_id = ? ORDER BY symbol`, userID)
	if err != nil {
		return nil, storageError("failed to query holdings table", err)
	}
	defer rows.Close()

	holdings := []model.CachedHolding{}
	for rows.Next() {
		var h model.CachedHolding
		if err := rows.Scan(&h.Symbol, &h.Amount); err != nil {
			return nil, storageError("failed to scan holdings table results", err)
		}
		holdings = append(holdings, h)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("error iterating holdings table", err)
	}
	return holdings, nil
}

// Get returns one cached holding, or a zero amount when the user holds none.
func (r *HoldingRepository) Get(ctx context.Context, userID, symbol string) (model.CachedHolding, error) {
	h := model.CachedHolding{Symbol: symbol}
	err := r.getQuerier().QueryRowContext(ctx,
		`SELECT amount FROM holdings WHERE user_id = ? AND symbol = ?`, userID, symbol,
	).Scan(&h.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		h.Amount = decimal.Zero
		return h, nil
	}
	if err != nil {
		return model.CachedHolding{}, storageError("failed to get holding", err)
	}
	return h, nil
}

// Adjust adds delta to the cached amount of symbol and returns the new holding.
func (r *HoldingRepository) Adjust(ctx context.Context, userID, symbol string, delta decimal.Decimal, now time.Time) (model.CachedHolding, error) {
	h, err := r.Get(ctx, userID, symbol)
	if err != nil {
		return model.CachedHolding{}, err
	}
	h.Amount = h.Amount.Add(delta)

	if !h.Amount.IsPositive() {
		if _, err := r.getQuerier().ExecContext(ctx,
			`DELETE FROM holdings WHERE user_id = ? AND symbol = ?`, userID, symbol,
		); err != nil {
			return model.CachedHolding{}, storageError("failed to delete holding", err)
		}
		h.Amount = decimal.Zero
		return h, nil
	}

	_, err = r.getQuerier().ExecContext(ctx, `
		INSERT INTO holdings (user_id, symbol, amount, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, symbol) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
	`, userID, symbol, h.Amount, FormatTime(now))
	if err != nil {
		return model.CachedHolding{}, storageError("failed to update holding", err)
	}
	return h, nil
}

// Delete drops a symbol from the projection.
func (r *HoldingRepository) Delete(ctx context.Context, userID, symbol string) error {
	res, err := r.getQuerier().ExecContext(ctx,
		`DELETE FROM holdings WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return storageError("failed to delete holding", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("failed to delete holding", err)
	}
	if n == 0 {
		return apperrors.ErrHoldingNotFound
	}
	return nil
}
