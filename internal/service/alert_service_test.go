package service_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/testutil"
)

// TestAlertService_Rules tests managing alert rules.
func TestAlertService_Rules(t *testing.T) {
	t.Run("set overwrites an existing rule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db, testutil.NewStubPriceSource(), testutil.NewRecordingMailer())
		user := testutil.NewUser().Build(t, db)

		for _, threshold := range []string{"1000", "2000"} {
			if _, err := svc.SetAlert(t.Context(), user.ID, request.SetAlertRequest{Symbol: "eth", Threshold: decPtr(threshold)}); err != nil {
				t.Fatalf("SetAlert() returned unexpected error: %v", err)
			}
		}

		prefs, err := svc.GetPreferences(t.Context(), user.ID)
		if err != nil {
			t.Fatalf("GetPreferences() returned unexpected error: %v", err)
		}
		if !prefs.EnableAlerts || len(prefs.PriceThresholds) != 1 {
			t.Fatalf("Expected one rule with alerts on, got %+v", prefs)
		}
		assertDec(t, "2000", prefs.PriceThresholds[0].Threshold.Decimal)
	})

	t.Run("set fails when alerts are disabled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db, testutil.NewStubPriceSource(), testutil.NewRecordingMailer())
		user := testutil.NewUser().AlertsDisabled().Build(t, db)

		_, err := svc.SetAlert(t.Context(), user.ID, request.SetAlertRequest{Symbol: "eth", Threshold: decPtr("1")})

		if !errors.Is(err, apperrors.ErrAlertsDisabled) {
			t.Errorf("Expected ErrAlertsDisabled, got %v", err)
		}
	})

	t.Run("delete unknown rule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db, testutil.NewStubPriceSource(), testutil.NewRecordingMailer())
		user := testutil.NewUser().Build(t, db)

		err := svc.DeleteAlert(t.Context(), user.ID, "eth")

		if !errors.Is(err, apperrors.ErrAlertNotFound) {
			t.Errorf("Expected ErrAlertNotFound, got %v", err)
		}
	})
}

// TestAlertService_Evaluate tests on-demand evaluation.
//
// WHY: Users check their rules interactively. Evaluation must use one price
// lookup in the user's currency and leave no trace in the trigger history.
func TestAlertService_Evaluate(t *testing.T) {
	t.Run("returns reached thresholds without recording them", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource().
			WithPrice("eth", "usd", "2500").
			WithPrice("btc", "usd", "100")
		mailer := testutil.NewRecordingMailer()
		svc := testutil.NewTestAlertService(t, db, prices, mailer)
		user := testutil.NewUser().Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "eth", "2000")
		testutil.CreateAlertRule(t, db, user.ID, "btc", "50000")

		triggered, err := svc.Evaluate(t.Context(), user.ID)

		if err != nil {
			t.Fatalf("Evaluate() returned unexpected error: %v", err)
		}
		if len(triggered) != 1 || triggered[0].Symbol != "eth" {
			t.Errorf("Expected only eth to trigger, got %+v", triggered)
		}
		if prices.Calls() != 1 {
			t.Errorf("Expected 1 price lookup, got %d", prices.Calls())
		}
		testutil.AssertRowCount(t, db, "triggered_alerts", 0)
		if len(mailer.Sent()) != 0 {
			t.Errorf("Expected no mail, got %d", len(mailer.Sent()))
		}
	})

	t.Run("disabled alerts yield nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource().WithPrice("eth", "usd", "2500")
		svc := testutil.NewTestAlertService(t, db, prices, testutil.NewRecordingMailer())
		user := testutil.NewUser().AlertsDisabled().Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "eth", "1")

		triggered, err := svc.Evaluate(t.Context(), user.ID)

		if err != nil {
			t.Fatalf("Evaluate() returned unexpected error: %v", err)
		}
		if triggered == nil || len(triggered) != 0 {
			t.Errorf("Expected empty result, got %#v", triggered)
		}
		if prices.Calls() != 0 {
			t.Errorf("Expected no price lookup, got %d", prices.Calls())
		}
	})

	t.Run("feed outage is returned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource().WithError(apperrors.ErrPriceUnavailable)
		svc := testutil.NewTestAlertService(t, db, prices, testutil.NewRecordingMailer())
		user := testutil.NewUser().Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "eth", "1")

		_, err := svc.Evaluate(t.Context(), user.ID)

		if !errors.Is(err, apperrors.ErrPriceUnavailable) {
			t.Errorf("Expected ErrPriceUnavailable, got %v", err)
		}
	})
}

// TestAlertService_RunCycle tests the background evaluation.
func TestAlertService_RunCycle(t *testing.T) {
	t.Run("records and mails triggered alerts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource().WithPrice("eth", "usd", "2500")
		mailer := testutil.NewRecordingMailer()
		svc := testutil.NewTestAlertService(t, db, prices, mailer)
		user := testutil.NewUser().WithName("Ada").Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "eth", "2000")

		result, err := svc.RunCycle(t.Context())

		if err != nil {
			t.Fatalf("RunCycle() returned unexpected error: %v", err)
		}
		if result.Subscribers != 1 || result.Triggered != 1 {
			t.Errorf("Unexpected result: %+v", result)
		}
		testutil.AssertRowCount(t, db, "triggered_alerts", 1)

		sent := mailer.Sent()
		if len(sent) != 1 {
			t.Fatalf("Expected 1 mail, got %d", len(sent))
		}
		if sent[0].To != user.Email || !strings.Contains(sent[0].Body, "eth is at 2500 USD") {
			t.Errorf("Unexpected mail: %+v", sent[0])
		}

		history, err := svc.TriggerHistory(t.Context(), user.ID, 0)
		if err != nil {
			t.Fatalf("TriggerHistory() returned unexpected error: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("Expected 1 history entry, got %d", len(history))
		}
	})

	t.Run("skips a currency whose prices fail", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource().WithError(apperrors.ErrPriceUnavailable)
		mailer := testutil.NewRecordingMailer()
		svc := testutil.NewTestAlertService(t, db, prices, mailer)
		user := testutil.NewUser().WithCurrency("eur").Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "eth", "1")

		result, err := svc.RunCycle(t.Context())

		if err != nil {
			t.Fatalf("RunCycle() returned unexpected error: %v", err)
		}
		if len(result.FailedCurrencies) != 1 || result.FailedCurrencies[0] != "eur" {
			t.Errorf("Expected eur to fail, got %v", result.FailedCurrencies)
		}
		if result.Triggered != 0 || len(mailer.Sent()) != 0 {
			t.Errorf("Expected nothing triggered, got %+v", result)
		}
	})

	t.Run("mail failure still records the trigger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource().WithPrice("btc", "usd", "10")
		mailer := testutil.NewRecordingMailer().WithError(errors.New("smtp down"))
		svc := testutil.NewTestAlertService(t, db, prices, mailer)
		user := testutil.NewUser().Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "btc", "5")

		if _, err := svc.RunCycle(t.Context()); err != nil {
			t.Fatalf("RunCycle() returned unexpected error: %v", err)
		}

		testutil.AssertRowCount(t, db, "triggered_alerts", 1)
	})

	t.Run("users with alerts off are not subscribers", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStubPriceSource()
		svc := testutil.NewTestAlertService(t, db, prices, testutil.NewRecordingMailer())
		user := testutil.NewUser().AlertsDisabled().Build(t, db)
		testutil.CreateAlertRule(t, db, user.ID, "btc", "5")

		result, err := svc.RunCycle(t.Context())

		if err != nil {
			t.Fatalf("RunCycle() returned unexpected error: %v", err)
		}
		if result.Subscribers != 0 || prices.Calls() != 0 {
			t.Errorf("Expected an idle cycle, got %+v with %d lookups", result, prices.Calls())
		}
	})
}
