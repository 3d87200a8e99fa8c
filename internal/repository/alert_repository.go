package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// AlertRepository provides data access methods for alert_rules and triggered_alerts.
type AlertRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewAlertRepository creates a new AlertRepository with the provided database connection.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// WithTx returns a new AlertRepository scoped to the provided transaction.
func (r *AlertRepository) WithTx(tx *sql.Tx) *AlertRepository {
	return &AlertRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *AlertRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// parseThreshold keeps unparseable stored thresholds as invalid rather than failing the read.
func parseThreshold(raw string) decimal.NullDecimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Upsert stores the rule, overwriting the threshold of an existing rule for the same symbol.
func (r *AlertRepository) Upsert(ctx context.Context, rule model.AlertRule) error {
	_, err := r.getQuerier().ExecContext(ctx, `
		INSERT INTO alert_rules (user_id, symbol, threshold, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, symbol) DO UPDATE SET threshold = excluded.threshold, updated_at = excluded.updated_at
	`, rule.UserID, rule.Symbol, rule.Threshold.Decimal.String(), FormatTime(rule.UpdatedAt))
	if err != nil {
		return storageError("failed to upsert alert rule", err)
	}
	return nil
}

// ListByUser returns the rules of a user ordered by symbol.
func (r *AlertRepository) ListByUser(ctx context.Context, userID string) ([]model.AlertRule, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT user_id, symbol, threshold, updated_at
		FROM alert_rules
		WHERE user_id = ?
		ORDER BY symbol
	`, userID)
	if err != nil {
		return nil, storageError("failed to query alert_rules table", err)
	}
	defer rows.Close()

	rules := []model.AlertRule{}
	for rows.Next() {
		var rule model.AlertRule
		var threshold, updatedAt string
		if err := rows.Scan(&rule.UserID, &rule.Symbol, &threshold, &updatedAt); err != nil {
			return nil, storageError("failed to scan alert_rules table results", err)
		}
		rule.Threshold = parseThreshold(threshold)
		if rule.UpdatedAt, err = ParseTime(updatedAt); err != nil {
			return nil, storageError("failed to scan alert_rules table results", err)
		}
		rules = append(rules, rule)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("error iterating alert_rules table", err)
	}
	return rules, nil
}

// Delete removes the rule for symbol.
func (r *AlertRepository) Delete(ctx context.Context, userID, symbol string) error {
	res, err := r.getQuerier().ExecContext(ctx,
		`DELETE FROM alert_rules WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return storageError("failed to delete alert rule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("failed to delete alert rule", err)
	}
	if n == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// ListSubscribers returns every active user with alerts enabled and at least
// one rule, each with their rules.
func (r *AlertRepository) ListSubscribers(ctx context.Context) ([]model.AlertSubscriber, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.default_currency, a.symbol, a.threshold, a.updated_at
		FROM users u
		JOIN alert_rules a ON a.user_id = u.id
		WHERE u.alerts_enabled = 1 AND u.active = 1
		ORDER BY u.id, a.symbol
	`)
	if err != nil {
		return nil, storageError("failed to query alert subscribers", err)
	}
	defer rows.Close()

	var subscribers []model.AlertSubscriber
	for rows.Next() {
		var s model.AlertSubscriber
		var rule model.AlertRule
		var threshold, updatedAt string
		if err := rows.Scan(&s.UserID, &s.Name, &s.Email, &s.Currency, &rule.Symbol, &threshold, &updatedAt); err != nil {
			return nil, storageError("failed to scan alert subscribers", err)
		}
		rule.UserID = s.UserID
		rule.Threshold = parseThreshold(threshold)
		if rule.UpdatedAt, err = ParseTime(updatedAt); err != nil {
			return nil, storageError("failed to scan alert subscribers", err)
		}

		if n := len(subscribers); n > 0 && subscribers[n-1].UserID == s.UserID {
			subscribers[n-1].Rules = append(subscribers[n-1].Rules, rule)
			continue
		}
		s.Rules = []model.AlertRule{rule}
		subscribers = append(subscribers, s)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("error iterating alert subscribers", err)
	}
	return subscribers, nil
}

// RecordTriggered appends alerts to the trigger history.
func (r *AlertRepository) RecordTriggered(ctx context.Context, alerts []model.TriggeredAlert) error {
	for _, a := range alerts {
		_, err := r.getQuerier().ExecContext(ctx, `
			INSERT INTO triggered_alerts (user_id, symbol, threshold, price, currency, triggered_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.UserID, a.Symbol, a.Threshold, a.Price, a.Currency, FormatTime(a.TriggeredAt))
		if err != nil {
			return storageError("failed to record triggered alert", err)
		}
	}
	return nil
}

// ListTriggered returns the most recent triggers of a user, newest first.
func (r *AlertRepository) ListTriggered(ctx context.Context, userID string, limit int) ([]model.TriggeredAlert, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT user_id, symbol, threshold, price, currency, triggered_at
		FROM triggered_alerts
		WHERE user_id = ?
		ORDER BY triggered_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, storageError("failed to query triggered_alerts table", err)
	}
	defer rows.Close()

	alerts := []model.TriggeredAlert{}
	for rows.Next() {
		var a model.TriggeredAlert
		var triggeredAt string
		if err := rows.Scan(&a.UserID, &a.Symbol, &a.Threshold, &a.Price, &a.Currency, &triggeredAt); err != nil {
			return nil, storageError("failed to scan triggered_alerts table results", err)
		}
		if a.TriggeredAt, err = ParseTime(triggeredAt); err != nil {
			return nil, storageError("failed to scan triggered_alerts table results", err)
		}
		alerts = append(alerts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("error iterating triggered_alerts table", err)
	}
	return alerts, nil
}
