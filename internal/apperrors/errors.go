package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrUserNotFound indicates that a user with the given ID or email does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist
	// or is not owned by the requesting user.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrHoldingNotFound indicates that the user's cached holdings contain no entry for a symbol.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrAlertNotFound indicates that no alert rule exists for the given user and symbol.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrPriceNotFound indicates that the price feed answered but has no price for a symbol.
	ErrPriceNotFound = errors.New("price not found for symbol")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientHoldings indicates that a SELL requires more than the open lots hold.
	// Returned wrapped in an *InsufficientHoldingsError carrying the symbol and shortfall.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrInvalidAmount indicates a zero or negative transaction amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidPrice indicates a negative unit price.
	ErrInvalidPrice = errors.New("unit price cannot be negative")

	// ErrUnknownTransactionType indicates a transaction kind other than BUY, SELL or TRANSFER.
	ErrUnknownTransactionType = errors.New("unknown transaction type")

	// ErrEmailExists indicates that an account with the same email is already registered.
	ErrEmailExists = errors.New("email already exists")

	// ErrAlertsDisabled indicates that the user has turned price alerts off.
	ErrAlertsDisabled = errors.New("alerts are disabled for this user")

	// ErrSelfTransfer indicates a transfer whose sender and receiver are the same user.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrConcurrentModification indicates that the user's record changed between read and write.
	ErrConcurrentModification = errors.New("concurrent modification, retry the request")

	ErrInvalidUUID     = errors.New("invalid UUID format")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidCurrency = errors.New("invalid currency")
)

// Authentication errors. Handlers never reveal which part of a credential was wrong.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("insufficient permissions")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	// ErrPriceUnavailable indicates that the upstream price feed could not be reached at all.
	// A symbol that is merely missing from a successful response is not this error.
	ErrPriceUnavailable = errors.New("price source unavailable")

	// ErrStorage marks a failure reading or writing the transaction log or user store.
	ErrStorage = errors.New("storage error")

	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToComputePnL           = errors.New("failed to compute profit and loss")
	ErrFailedToComputeHoldings      = errors.New("failed to compute holdings")
	ErrFailedToGenerateTaxReport    = errors.New("failed to generate tax report")
	ErrFailedToRetrievePrices       = errors.New("failed to retrieve prices")
	ErrFailedToRetrievePortfolio    = errors.New("failed to retrieve portfolio")
	ErrFailedToRetrieveUsers        = errors.New("failed to retrieve users")
	ErrFailedToRegisterUser         = errors.New("failed to register user")
	ErrFailedToUpdateUser           = errors.New("failed to update user")
	ErrFailedToAuthenticate         = errors.New("failed to authenticate")
	ErrFailedToRetrieveAlerts       = errors.New("failed to retrieve alerts")
	ErrFailedToUpdateAlert          = errors.New("failed to update alert")
	ErrFailedToSendEmail            = errors.New("failed to send email")
	ErrFailedToGetVersionInfo       = errors.New("failed to get version information")
)

// InsufficientHoldingsError reports a SELL that could not be covered by open lots.
type InsufficientHoldingsError struct {
	Symbol        string
	Requested     decimal.Decimal
	Shortfall     decimal.Decimal
	TransactionID string
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("%s: %s short by %s (requested %s)",
		ErrInsufficientHoldings, e.Symbol, e.Shortfall.String(), e.Requested.String())
}

// Unwrap lets errors.Is match ErrInsufficientHoldings.
func (e *InsufficientHoldingsError) Unwrap() error {
	return ErrInsufficientHoldings
}
