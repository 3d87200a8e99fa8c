package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/auth"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// DefaultPassword is the password of users created by UserBuilder.
const DefaultPassword = "correct-horse-battery"

// UserBuilder provides a fluent interface for creating test users.
//
// Example usage:
//
//	// Simple creation with defaults
//	user := testutil.NewUser().Build(t, db)
//
//	// Customized user
//	user := testutil.NewUser().
//	    WithEmail("alice@example.com").
//	    WithCurrency("eur").
//	    AlertsDisabled().
//	    Build(t, db)
type UserBuilder struct {
	ID              string
	Name            string
	Email           string
	Password        string
	Role            model.Role
	Active          bool
	DefaultCurrency string
	AlertsEnabled   bool
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{
		ID:              MakeID(),
		Name:            "Test User",
		Email:           MakeEmail("user"),
		Password:        DefaultPassword,
		Role:            model.RoleUser,
		Active:          true,
		DefaultCurrency: "usd",
		AlertsEnabled:   true,
	}
}

// WithID sets a custom ID.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.Name = name
	return b
}

// WithEmail sets a custom email.
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.Email = email
	return b
}

// WithPassword sets the plain text password that will be hashed.
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.Password = password
	return b
}

// WithCurrency sets the default currency.
func (b *UserBuilder) WithCurrency(currency string) *UserBuilder {
	b.DefaultCurrency = currency
	return b
}

// Admin gives the user the ADMIN role.
func (b *UserBuilder) Admin() *UserBuilder {
	b.Role = model.RoleAdmin
	return b
}

// Inactive marks the account as deactivated.
func (b *UserBuilder) Inactive() *UserBuilder {
	b.Active = false
	return b
}

// AlertsDisabled turns price alerts off.
func (b *UserBuilder) AlertsDisabled() *UserBuilder {
	b.AlertsEnabled = false
	return b
}

// Build creates the user in the database and returns it.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	hash, err := auth.HashPassword(b.Password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, name, email, password_hash, role, active, default_currency,
			alerts_enabled, transaction_count, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`
	_, err = db.Exec(query, b.ID, b.Name, b.Email, hash, b.Role, b.Active, b.DefaultCurrency,
		b.AlertsEnabled, repository.FormatTime(now), repository.FormatTime(now))
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return model.User{
		ID:              b.ID,
		Name:            b.Name,
		Email:           b.Email,
		PasswordHash:    hash,
		Role:            b.Role,
		Active:          b.Active,
		DefaultCurrency: b.DefaultCurrency,
		AlertsEnabled:   b.AlertsEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// TransactionBuilder provides a fluent interface for appending log entries.
// It writes the log only; use CreateHolding to seed the cached projection.
//
// Example usage:
//
//	testutil.NewTransaction(user.ID).Buy("btc", "2", "10000").Build(t, db)
//	testutil.NewTransaction(user.ID).Sell("btc", "1", "12000").At(later).Build(t, db)
type TransactionBuilder struct {
	ID             string
	OwnerID        string
	CounterpartyID string
	Symbol         string
	Type           model.TransactionType
	Amount         decimal.Decimal
	UnitPrice      decimal.Decimal
	Timestamp      time.Time
}

// NewTransaction creates a TransactionBuilder for a 1 unit BUY of btc at 100.
func NewTransaction(ownerID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:        MakeID(),
		OwnerID:   ownerID,
		Symbol:    "btc",
		Type:      model.TransactionBuy,
		Amount:    decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(100),
		Timestamp: time.Now().UTC(),
	}
}

func (b *TransactionBuilder) set(kind model.TransactionType, symbol, amount, price string) *TransactionBuilder {
	b.Type = kind
	b.Symbol = symbol
	b.Amount = decimal.RequireFromString(amount)
	b.UnitPrice = decimal.RequireFromString(price)
	return b
}

// Buy makes the entry a BUY.
func (b *TransactionBuilder) Buy(symbol, amount, price string) *TransactionBuilder {
	return b.set(model.TransactionBuy, symbol, amount, price)
}

// Sell makes the entry a SELL.
func (b *TransactionBuilder) Sell(symbol, amount, price string) *TransactionBuilder {
	return b.set(model.TransactionSell, symbol, amount, price)
}

// TransferTo makes the entry a TRANSFER to receiverID.
func (b *TransactionBuilder) TransferTo(receiverID, symbol, amount, price string) *TransactionBuilder {
	b.CounterpartyID = receiverID
	return b.set(model.TransactionTransfer, symbol, amount, price)
}

// At sets the execution time.
func (b *TransactionBuilder) At(ts time.Time) *TransactionBuilder {
	b.Timestamp = ts.UTC()
	return b
}

// Model returns the entry without storing it.
func (b *TransactionBuilder) Model() model.Transaction {
	return model.Transaction{
		ID:             b.ID,
		OwnerID:        b.OwnerID,
		CounterpartyID: b.CounterpartyID,
		Symbol:         b.Symbol,
		Type:           b.Type,
		Amount:         b.Amount,
		UnitPrice:      b.UnitPrice,
		Timestamp:      b.Timestamp,
	}
}

// Build appends the entry to the log and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	stored, err := repository.NewTransactionRepository(db).Append(t.Context(), b.Model())
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	return stored
}

// CreateHolding sets the cached amount of a symbol for a user.
func CreateHolding(t *testing.T, db *sql.DB, userID, symbol, amount string) model.CachedHolding {
	t.Helper()

	holding, err := repository.NewHoldingRepository(db).
		Adjust(t.Context(), userID, symbol, decimal.RequireFromString(amount), time.Now())
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}
	return holding
}

// CreateAlertRule stores a price threshold rule for a user.
func CreateAlertRule(t *testing.T, db *sql.DB, userID, symbol, threshold string) model.AlertRule {
	t.Helper()

	rule := model.AlertRule{
		UserID:    userID,
		Symbol:    symbol,
		Threshold: decimal.NewNullDecimal(decimal.RequireFromString(threshold)),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repository.NewAlertRepository(db).Upsert(t.Context(), rule); err != nil {
		t.Fatalf("Failed to create test alert rule: %v", err)
	}
	return rule
}

// Dec parses a decimal literal, failing loudly on typos in test tables.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
