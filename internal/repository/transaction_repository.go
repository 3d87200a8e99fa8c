package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// TransactionRepository is the append-only transaction log.
// Entries are ordered by executed_at, ties broken by insertion order.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const transactionColumns = `id, owner_id, counterparty_id, symbol, type, amount, unit_price, executed_at`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var counterparty sql.NullString
	var executedAt string

	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&counterparty,
		&t.Symbol,
		&t.Type,
		&t.Amount,
		&t.UnitPrice,
		&executedAt,
	)
	if err != nil {
		return model.Transaction{}, err
	}
	t.CounterpartyID = counterparty.String
	if t.Timestamp, err = ParseTime(executedAt); err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// ListByUser returns every transaction the user owns, oldest first.
// Incoming transfers, where the user is the counterparty, are included.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE owner_id = ? OR counterparty_id = ?
		ORDER BY executed_at ASC, seq ASC
	`
	rows, err := r.getQuerier().QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, storageError("failed to query transactions table", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageError("failed to scan transactions table results", err)
		}
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("error iterating transactions table", err)
	}
	return transactions, nil
}

// GetByID returns a transaction visible to userID, as owner or counterparty.
func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ? AND (owner_id = ? OR counterparty_id = ?)
	`
	t, err := scanTransaction(r.getQuerier().QueryRowContext(ctx, query, id, userID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, storageError("failed to get transaction", err)
	}
	return t, nil
}

// Append stores a transaction at the end of the log.
func (r *TransactionRepository) Append(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	query := `
		INSERT INTO transactions (id, owner_id, counterparty_id, symbol, type, amount, unit_price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.OwnerID,
		nullString(t.CounterpartyID),
		t.Symbol,
		t.Type,
		t.Amount,
		t.UnitPrice,
		FormatTime(t.Timestamp),
	)
	if err != nil {
		return model.Transaction{}, storageError("failed to insert transaction", err)
	}
	t.Timestamp = t.Timestamp.UTC()
	return t, nil
}
