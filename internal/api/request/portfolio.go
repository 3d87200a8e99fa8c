package request

import "github.com/shopspring/decimal"

// SetAlertRequest creates or overwrites the alert rule for a symbol.
type SetAlertRequest struct {
	Symbol    string           `json:"symbol"`
	Threshold *decimal.Decimal `json:"threshold"`
}

// UpdatePreferencesRequest changes user settings; nil fields are left alone.
type UpdatePreferencesRequest struct {
	DefaultCurrency *string `json:"defaultCurrency,omitempty"`
	EnableAlerts    *bool   `json:"enableAlerts,omitempty"`
}
