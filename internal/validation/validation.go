package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
)

// Common validation errors
var (
	ErrEmptySlice = fmt.Errorf("slice cannot be empty")
)

// symbolPattern matches price feed asset ids such as "bitcoin" or "usd-coin".
var symbolPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}

// ValidateUUIDs validates a slice of UUIDs
func ValidateUUIDs(ids []string) error {
	if len(ids) == 0 {
		return ErrEmptySlice
	}
	for _, id := range ids {
		if err := ValidateUUID(id); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeSymbol trims and lowercases a symbol as the price feed expects it.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// ValidateSymbol checks that symbol is a normalized asset id.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidSymbol, symbol)
	}
	return nil
}

// ParseSymbols splits a comma separated symbol list, normalizing and
// de-duplicating entries while keeping their order.
func ParseSymbols(list string) ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string
	for _, part := range strings.Split(list, ",") {
		symbol := NormalizeSymbol(part)
		if symbol == "" || seen[symbol] {
			continue
		}
		if err := ValidateSymbol(symbol); err != nil {
			return nil, err
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}
	if len(symbols) == 0 {
		return nil, &Error{Fields: map[string]string{"symbols": "at least one symbol is required"}}
	}
	return symbols, nil
}

// NormalizeCurrency lowercases a fiat code as the price feed expects it.
func NormalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}

// ValidateCurrency checks that currency is a known ISO 4217 code.
func ValidateCurrency(currency string) error {
	if currency == "" || money.GetCurrency(strings.ToUpper(currency)) == nil {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, currency)
	}
	return nil
}
