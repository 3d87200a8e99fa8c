package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// EvaluateAlerts returns the rules whose threshold is reached by the given
// prices. Rules with a malformed symbol or an unusable threshold are skipped
// and returned separately so the caller can log them. A symbol without a
// price counts as price zero.
func EvaluateAlerts(rules []model.AlertRule, prices map[string]decimal.Decimal, currency string, now time.Time) (triggered []model.TriggeredAlert, skipped []model.AlertRule) {
	for _, rule := range rules {
		if !alertRuleUsable(rule) {
			skipped = append(skipped, rule)
			continue
		}

		price, ok := prices[rule.Symbol]
		if !ok {
			price = decimal.Zero
		}

		if price.GreaterThanOrEqual(rule.Threshold.Decimal) {
			triggered = append(triggered, model.TriggeredAlert{
				UserID:      rule.UserID,
				Symbol:      rule.Symbol,
				Threshold:   rule.Threshold.Decimal,
				Price:       price,
				Currency:    currency,
				TriggeredAt: now,
			})
		}
	}
	return triggered, skipped
}

func alertRuleUsable(rule model.AlertRule) bool {
	if validation.ValidateSymbol(rule.Symbol) != nil {
		return false
	}
	return rule.Threshold.Valid && rule.Threshold.Decimal.IsPositive()
}

// alertSymbols returns the distinct usable symbols of rules, in first-seen order.
func alertSymbols(rules []model.AlertRule) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, rule := range rules {
		if !alertRuleUsable(rule) || seen[rule.Symbol] {
			continue
		}
		seen[rule.Symbol] = true
		symbols = append(symbols, rule.Symbol)
	}
	return symbols
}
