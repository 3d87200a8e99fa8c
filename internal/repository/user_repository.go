package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// UserRepository provides data access methods for the users table.
type UserRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a new UserRepository scoped to the provided transaction.
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *UserRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const userColumns = `
	id, name, email, password_hash, role, active, default_currency, alerts_enabled,
	transaction_count, refresh_token_id, reset_token_hash, reset_token_expires,
	version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var refreshID, resetHash, resetExpires sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Active,
		&u.DefaultCurrency,
		&u.AlertsEnabled,
		&u.TransactionCount,
		&refreshID,
		&resetHash,
		&resetExpires,
		&u.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	u.RefreshTokenID = refreshID.String
	u.ResetTokenHash = resetHash.String
	if u.ResetTokenExpires, err = parseNullTime(resetExpires); err != nil {
		return model.User{}, err
	}
	if u.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.User{}, err
	}
	if u.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Create inserts a new user. A duplicate email yields apperrors.ErrEmailExists.
func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, active, default_currency,
			alerts_enabled, transaction_count, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`
	_, err := r.getQuerier().ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Active, u.DefaultCurrency,
		u.AlertsEnabled, FormatTime(u.CreatedAt), FormatTime(u.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return apperrors.ErrEmailExists
	}
	if err != nil {
		return storageError("failed to insert user", err)
	}
	return nil
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.getQuerier().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storageError("failed to get user", err)
	}
	return u, nil
}

// GetByEmail returns the user registered with email, compared case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.getQuerier().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storageError("failed to get user", err)
	}
	return u, nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, storageError("failed to query users table", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageError("failed to scan users table results", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("error iterating users table", err)
	}
	return users, nil
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.getQuerier().ExecContext(ctx, query, args...)
	if err != nil {
		return storageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError(op, err)
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// SetRefreshTokenID stores the id of the current refresh token; an empty id revokes it.
func (r *UserRepository) SetRefreshTokenID(ctx context.Context, userID, tokenID string) error {
	return r.execOne(ctx, "failed to update refresh token",
		`UPDATE users SET refresh_token_id = ? WHERE id = ?`,
		nullString(tokenID), userID,
	)
}

// SetResetToken stores the hash and expiry of a password reset token.
func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expires *time.Time) error {
	return r.execOne(ctx, "failed to update reset token",
		`UPDATE users SET reset_token_hash = ?, reset_token_expires = ? WHERE id = ?`,
		nullString(tokenHash), nullTime(expires), userID,
	)
}

// UpdatePassword replaces the password hash and revokes the reset and refresh tokens.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) error {
	return r.execOne(ctx, "failed to update password",
		`UPDATE users
		 SET password_hash = ?, reset_token_hash = NULL, reset_token_expires = NULL,
		     refresh_token_id = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, FormatTime(now), userID,
	)
}

// UpdatePreferences sets the default currency and the alert switch.
func (r *UserRepository) UpdatePreferences(ctx context.Context, userID, currency string, alertsEnabled bool, now time.Time) error {
	return r.execOne(ctx, "failed to update preferences",
		`UPDATE users SET default_currency = ?, alerts_enabled = ?, updated_at = ? WHERE id = ?`,
		currency, alertsEnabled, FormatTime(now), userID,
	)
}

// CommitWrite advances the user's version after appending transactions.
// It fails with apperrors.ErrConcurrentModification when the stored version
// no longer equals expectedVersion.
func (r *UserRepository) CommitWrite(ctx context.Context, userID string, expectedVersion int64, appended int) error {
	res, err := r.getQuerier().ExecContext(ctx,
		`UPDATE users
		 SET version = version + 1, transaction_count = transaction_count + ?
		 WHERE id = ? AND version = ?`,
		appended, userID, expectedVersion,
	)
	if err != nil {
		return storageError("failed to update user version", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("failed to update user version", err)
	}
	if n == 0 {
		return apperrors.ErrConcurrentModification
	}
	return nil
}
