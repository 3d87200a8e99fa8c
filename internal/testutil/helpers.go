package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/auth"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/mail"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
)

// Secrets used by test token issuers.
const (
	TestAccessSecret  = "test-access-secret"
	TestRefreshSecret = "test-refresh-secret"
)

// StubPriceSource is an in-memory price feed for testing.
// Prices are keyed by currency, then symbol. Symbols without a price are
// omitted from responses, like the real feed does.
type StubPriceSource struct {
	mu     sync.Mutex
	prices map[string]map[string]decimal.Decimal
	err    error
	calls  int
}

// NewStubPriceSource creates an empty StubPriceSource.
func NewStubPriceSource() *StubPriceSource {
	return &StubPriceSource{prices: make(map[string]map[string]decimal.Decimal)}
}

// WithPrice sets the price of symbol in currency.
func (s *StubPriceSource) WithPrice(symbol, currency, price string) *StubPriceSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prices[currency] == nil {
		s.prices[currency] = make(map[string]decimal.Decimal)
	}
	s.prices[currency][symbol] = decimal.RequireFromString(price)
	return s
}

// WithError makes every lookup fail with err.
func (s *StubPriceSource) WithError(err error) *StubPriceSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Calls returns how many lookups were made.
func (s *StubPriceSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// GetPrices implements service.PriceSource.
func (s *StubPriceSource) GetPrices(_ context.Context, symbols []string, currency string) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		if price, ok := s.prices[currency][symbol]; ok {
			out[symbol] = price
		}
	}
	return out, nil
}

// RecordingMailer keeps sent messages in memory.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

// NewRecordingMailer creates an empty RecordingMailer.
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

// WithError makes every send fail with err.
func (m *RecordingMailer) WithError(err error) *RecordingMailer {
	m.err = err
	return m
}

// Send implements mail.Mailer.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the messages sent so far.
func (m *RecordingMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

func NewTestTransactionService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		db,
		repository.NewUserRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewHoldingRepository(db),
		prices,
		logging.NewSilentLogger(),
	)
}

func NewTestValuationService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		repository.NewUserRepository(db),
		repository.NewTransactionRepository(db),
		prices,
	)
}

func NewTestPortfolioService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewUserRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewHoldingRepository(db),
		prices,
		logging.NewSilentLogger(),
	)
}

func NewTestAlertService(t *testing.T, db *sql.DB, prices service.PriceSource, mailer mail.Mailer) *service.AlertService {
	t.Helper()

	return service.NewAlertService(
		repository.NewUserRepository(db),
		repository.NewAlertRepository(db),
		prices,
		mailer,
		logging.NewSilentLogger(),
		2,
	)
}

func NewTestUserService(t *testing.T, db *sql.DB) *service.UserService {
	t.Helper()

	return service.NewUserService(repository.NewUserRepository(db), bcrypt.MinCost, "usd", logging.NewSilentLogger())
}

// NewTestTokenIssuer creates a TokenIssuer with the test secrets.
func NewTestTokenIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(TestAccessSecret, TestRefreshSecret, 15*time.Minute, 24*time.Hour)
}

func NewTestAuthService(t *testing.T, db *sql.DB, mailer mail.Mailer) *service.AuthService {
	t.Helper()

	reset, err := auth.NewResetTokens("", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create reset tokens: %v", err)
	}
	return service.NewAuthService(
		repository.NewUserRepository(db),
		NewTestTokenIssuer(),
		reset,
		mailer,
		"http://localhost:3000",
		bcrypt.MinCost,
		logging.NewSilentLogger(),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db, map[string]bool{"mail": false, "alerts": true})
}

// MakeID generates a UUID string for use in tests.
func MakeID() string {
	return uuid.New().String()
}

// MakeEmail generates a unique email address for testing.
//
// Example usage:
//
//	email := testutil.MakeEmail("alice")
//	// Returns: "alice-1a2b3c4d@example.com"
func MakeEmail(base string) string {
	if base == "" {
		base = "user"
	}
	return fmt.Sprintf("%s-%s@example.com", base, strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// AccessTokenFor issues an access token signed with the test secret.
func AccessTokenFor(t *testing.T, user model.User) string {
	t.Helper()

	token, err := NewTestTokenIssuer().IssueAccess(user.ID, user.Role)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}
