package validation_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// fields returns the per-field messages of a validation failure.
func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr), "expected *validation.Error, got %v", err)
	return vErr.Fields
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		valid  bool
	}{
		{"bitcoin", true},
		{"usd-coin", true},
		{"1inch", true},
		{"", false},
		{"-btc", false},
		{"BTC", false},
		{"btc eth", false},
		{"btc!", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			err := validation.ValidateSymbol(tt.symbol)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, validation.ValidateCurrency("usd"))
	assert.NoError(t, validation.ValidateCurrency("eur"))
	assert.ErrorIs(t, validation.ValidateCurrency(""), apperrors.ErrInvalidCurrency)
	assert.ErrorIs(t, validation.ValidateCurrency("doge"), apperrors.ErrInvalidCurrency)
}

func TestParseSymbols(t *testing.T) {
	t.Run("normalizes and de-duplicates in order", func(t *testing.T) {
		symbols, err := validation.ParseSymbols(" ETH ,bitcoin,,eth")
		require.NoError(t, err)
		assert.Equal(t, []string{"eth", "bitcoin"}, symbols)
	})

	t.Run("empty list is rejected", func(t *testing.T) {
		_, err := validation.ParseSymbols(" , ")
		assert.Contains(t, fields(t, err), "symbols")
	})

	t.Run("malformed entry is rejected", func(t *testing.T) {
		_, err := validation.ParseSymbols("btc,bad symbol")
		assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
	})
}

func TestValidateCreateTransaction(t *testing.T) {
	tests := []struct {
		name       string
		req        request.CreateTransactionRequest
		wantFields []string
	}{
		{
			name: "buy without price",
			req:  request.CreateTransactionRequest{Symbol: "btc", Type: "BUY", Amount: dec("0.5")},
		},
		{
			name: "sell at zero price",
			req:  request.CreateTransactionRequest{Symbol: "btc", Type: "SELL", Amount: dec("1"), UnitPrice: dec("0")},
		},
		{
			name:       "transfer is not a create type",
			req:        request.CreateTransactionRequest{Symbol: "btc", Type: "TRANSFER", Amount: dec("1")},
			wantFields: []string{"type"},
		},
		{
			name:       "everything missing",
			req:        request.CreateTransactionRequest{},
			wantFields: []string{"symbol", "type", "amount"},
		},
		{
			name:       "non-positive amount and negative price",
			req:        request.CreateTransactionRequest{Symbol: "btc", Type: "BUY", Amount: dec("0"), UnitPrice: dec("-1")},
			wantFields: []string{"amount", "unitPrice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateCreateTransaction(tt.req)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			got := fields(t, err)
			assert.Len(t, got, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, got, f)
			}
		})
	}
}

func TestValidateTransfer(t *testing.T) {
	valid := request.TransferRequest{
		ReceiverID: "550e8400-e29b-41d4-a716-446655440000",
		Symbol:     "eth",
		Amount:     dec("2"),
	}
	assert.NoError(t, validation.ValidateTransfer(valid))

	got := fields(t, validation.ValidateTransfer(request.TransferRequest{ReceiverID: "nope", Amount: dec("-2")}))
	assert.Contains(t, got, "receiverId")
	assert.Contains(t, got, "symbol")
	assert.Contains(t, got, "amount")
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name      string
		req       request.RegisterRequest
		wantField string
	}{
		{"valid", request.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "long enough"}, ""},
		{"blank name", request.RegisterRequest{Name: "  ", Email: "ada@example.com", Password: "long enough"}, "name"},
		{"display name email", request.RegisterRequest{Name: "Ada", Email: "Ada <ada@example.com>", Password: "long enough"}, "email"},
		{"short password", request.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "short"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateRegister(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fields(t, err), tt.wantField)
		})
	}
}

func TestValidateResetPassword(t *testing.T) {
	got := fields(t, validation.ValidateResetPassword(request.ResetPasswordRequest{Password: string(make([]byte, 73))}))
	assert.Contains(t, got, "token")
	assert.Equal(t, "password must be 72 characters or less", got["password"])
}

func TestValidateUpdatePreferences(t *testing.T) {
	eur, doge := "eur", "doge"
	on := true

	assert.NoError(t, validation.ValidateUpdatePreferences(request.UpdatePreferencesRequest{DefaultCurrency: &eur}))
	assert.NoError(t, validation.ValidateUpdatePreferences(request.UpdatePreferencesRequest{EnableAlerts: &on}))
	assert.Contains(t, fields(t, validation.ValidateUpdatePreferences(request.UpdatePreferencesRequest{})), "preferences")
	assert.Contains(t, fields(t, validation.ValidateUpdatePreferences(request.UpdatePreferencesRequest{DefaultCurrency: &doge})), "defaultCurrency")
}

func TestValidateSetAlert(t *testing.T) {
	assert.NoError(t, validation.ValidateSetAlert(request.SetAlertRequest{Symbol: "eth", Threshold: dec("2500")}))

	got := fields(t, validation.ValidateSetAlert(request.SetAlertRequest{Symbol: "ETH", Threshold: dec("0")}))
	assert.Contains(t, got, "symbol")
	assert.Contains(t, got, "threshold")
}
