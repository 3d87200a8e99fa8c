package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRule fires when the price of Symbol reaches Threshold.
// Threshold is invalid when the stored value could not be parsed.
type AlertRule struct {
	UserID    string              `json:"-"`
	Symbol    string              `json:"symbol"`
	Threshold decimal.NullDecimal `json:"threshold"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// TriggeredAlert records a rule whose threshold was reached.
type TriggeredAlert struct {
	UserID      string          `json:"-"`
	Symbol      string          `json:"symbol"`
	Threshold   decimal.Decimal `json:"threshold"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	TriggeredAt time.Time       `json:"triggeredAt"`
}

// AlertPreferences is the alert configuration of a user.
type AlertPreferences struct {
	EnableAlerts    bool        `json:"enableAlerts"`
	PriceThresholds []AlertRule `json:"priceThresholds"`
}

// AlertSubscriber is an alert-enabled user with the rules to evaluate.
type AlertSubscriber struct {
	UserID   string
	Name     string
	Email    string
	Currency string
	Rules    []AlertRule
}
