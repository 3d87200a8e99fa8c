package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/mail"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// DefaultHistoryLimit bounds the trigger history returned per request.
const DefaultHistoryLimit = 100

// AlertService manages price alert rules and evaluates them.
type AlertService struct {
	userRepo    *repository.UserRepository
	alertRepo   *repository.AlertRepository
	prices      PriceSource
	mailer      mail.Mailer
	logger      *logging.Logger
	concurrency int
	now         func() time.Time
}

// NewAlertService creates a new AlertService. concurrency bounds the number
// of currencies fetched in parallel by RunCycle.
func NewAlertService(
	userRepo *repository.UserRepository,
	alertRepo *repository.AlertRepository,
	prices PriceSource,
	mailer mail.Mailer,
	logger *logging.Logger,
	concurrency int,
) *AlertService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AlertService{
		userRepo:    userRepo,
		alertRepo:   alertRepo,
		prices:      prices,
		mailer:      mailer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SetAlert creates or overwrites the rule for a symbol. Users with alerts
// turned off get apperrors.ErrAlertsDisabled.
func (s *AlertService) SetAlert(ctx context.Context, userID string, req request.SetAlertRequest) (model.AlertRule, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.AlertRule{}, err
	}
	if !user.AlertsEnabled {
		return model.AlertRule{}, apperrors.ErrAlertsDisabled
	}

	rule := model.AlertRule{
		UserID:    userID,
		Symbol:    req.Symbol,
		Threshold: decimal.NewNullDecimal(*req.Threshold),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.alertRepo.Upsert(ctx, rule); err != nil {
		return model.AlertRule{}, err
	}
	return rule, nil
}

// GetPreferences returns the alert switch and the rules of a user.
func (s *AlertService) GetPreferences(ctx context.Context, userID string) (model.AlertPreferences, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.AlertPreferences{}, err
	}
	rules, err := s.alertRepo.ListByUser(ctx, userID)
	if err != nil {
		return model.AlertPreferences{}, err
	}
	return model.AlertPreferences{EnableAlerts: user.AlertsEnabled, PriceThresholds: rules}, nil
}

// DeleteAlert removes the rule for a symbol.
func (s *AlertService) DeleteAlert(ctx context.Context, userID, symbol string) error {
	return s.alertRepo.Delete(ctx, userID, symbol)
}

// Evaluate checks the user's rules against current prices in their default
// currency, with one batched price lookup. Nothing is recorded or sent.
func (s *AlertService) Evaluate(ctx context.Context, userID string) ([]model.TriggeredAlert, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	triggered := []model.TriggeredAlert{}
	if !user.AlertsEnabled {
		return triggered, nil
	}

	rules, err := s.alertRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	symbols := alertSymbols(rules)
	if len(symbols) == 0 {
		return triggered, nil
	}

	prices, err := s.prices.GetPrices(ctx, symbols, user.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	hits, skipped := EvaluateAlerts(rules, prices, user.DefaultCurrency, s.now().UTC())
	s.logSkipped(skipped)
	return append(triggered, hits...), nil
}

// TriggerHistory returns the most recent recorded triggers of a user.
func (s *AlertService) TriggerHistory(ctx context.Context, userID string, limit int) ([]model.TriggeredAlert, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return s.alertRepo.ListTriggered(ctx, userID, limit)
}

// CycleResult summarizes one background evaluation.
type CycleResult struct {
	Subscribers      int
	Triggered        int
	FailedCurrencies []string
}

// RunCycle evaluates the rules of every alert-enabled user. Prices are fetched
// once per currency, several currencies in parallel. Triggers are recorded
// and mailed. A currency whose prices cannot be fetched and a mail that
// cannot be sent are logged and skipped; only failing to list the rules
// fails the cycle.
func (s *AlertService) RunCycle(ctx context.Context) (CycleResult, error) {
	subscribers, err := s.alertRepo.ListSubscribers(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	result := CycleResult{Subscribers: len(subscribers)}
	if len(subscribers) == 0 {
		return result, nil
	}

	// currency -> symbols wanted in that currency
	wanted := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, sub := range subscribers {
		if seen[sub.Currency] == nil {
			seen[sub.Currency] = make(map[string]bool)
		}
		for _, symbol := range alertSymbols(sub.Rules) {
			if !seen[sub.Currency][symbol] {
				seen[sub.Currency][symbol] = true
				wanted[sub.Currency] = append(wanted[sub.Currency], symbol)
			}
		}
	}

	var mu sync.Mutex
	pricesByCurrency := make(map[string]map[string]decimal.Decimal)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for currency, symbols := range wanted {
		g.Go(func() error {
			prices, err := s.prices.GetPrices(gctx, symbols, currency)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).Str("currency", currency).Msg("alert prices unavailable, skipping currency")
				result.FailedCurrencies = append(result.FailedCurrencies, currency)
				return nil
			}
			pricesByCurrency[currency] = prices
			return nil
		})
	}
	_ = g.Wait() // goroutines never return an error

	now := s.now().UTC()
	for _, sub := range subscribers {
		prices, ok := pricesByCurrency[sub.Currency]
		if !ok {
			continue
		}
		hits, skipped := EvaluateAlerts(sub.Rules, prices, sub.Currency, now)
		s.logSkipped(skipped)
		if len(hits) == 0 {
			continue
		}
		result.Triggered += len(hits)

		if err := s.alertRepo.RecordTriggered(ctx, hits); err != nil {
			s.logger.Error().Err(err).Str("user_id", sub.UserID).Msg("failed to record triggered alerts")
		}
		if err := s.mailer.Send(ctx, mail.PriceAlert(sub.Email, sub.Name, hits)); err != nil {
			s.logger.Warn().Err(err).Str("user_id", sub.UserID).Msg("failed to send alert email")
		}
	}

	s.logger.Info().
		Int("subscribers", result.Subscribers).
		Int("triggered", result.Triggered).
		Strs("failed_currencies", result.FailedCurrencies).
		Msg("alert cycle finished")
	return result, nil
}

func (s *AlertService) logSkipped(rules []model.AlertRule) {
	for _, rule := range rules {
		s.logger.Warn().
			Str("user_id", rule.UserID).
			Str("symbol", rule.Symbol).
			Msg("skipping malformed alert rule")
	}
}
