package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/testutil"
)

func TestAlertRepository_Rules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	user := testutil.NewUser().Build(t, db)

	testutil.CreateAlertRule(t, db, user.ID, "eth", "2000")
	testutil.CreateAlertRule(t, db, user.ID, "btc", "50000")
	testutil.CreateAlertRule(t, db, user.ID, "eth", "2500.75")

	rules, err := repo.ListByUser(t.Context(), user.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "btc", rules[0].Symbol)
	assert.Equal(t, "eth", rules[1].Symbol)
	assert.True(t, rules[1].Threshold.Valid)
	assert.True(t, testutil.Dec("2500.75").Equal(rules[1].Threshold.Decimal))

	require.NoError(t, repo.Delete(t.Context(), user.ID, "eth"))
	assert.True(t, errors.Is(repo.Delete(t.Context(), user.ID, "eth"), apperrors.ErrAlertNotFound))
}

func TestAlertRepository_UnparseableThresholdIsInvalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	user := testutil.NewUser().Build(t, db)

	_, err := db.Exec(`INSERT INTO alert_rules (user_id, symbol, threshold, updated_at) VALUES (?, ?, ?, ?)`,
		user.ID, "eth", "lots", repository.FormatTime(time.Now()))
	require.NoError(t, err)

	rules, err := repo.ListByUser(t.Context(), user.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Threshold.Valid)
}

func TestAlertRepository_ListSubscribers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)

	first := testutil.NewUser().WithID("00000000-0000-0000-0000-000000000001").Build(t, db)
	second := testutil.NewUser().WithID("00000000-0000-0000-0000-000000000002").WithCurrency("eur").Build(t, db)
	off := testutil.NewUser().AlertsDisabled().Build(t, db)
	inactive := testutil.NewUser().Inactive().Build(t, db)
	testutil.NewUser().Build(t, db) // no rules

	testutil.CreateAlertRule(t, db, first.ID, "btc", "1")
	testutil.CreateAlertRule(t, db, first.ID, "eth", "2")
	testutil.CreateAlertRule(t, db, second.ID, "sol", "3")
	testutil.CreateAlertRule(t, db, off.ID, "btc", "1")
	testutil.CreateAlertRule(t, db, inactive.ID, "btc", "1")

	subs, err := repo.ListSubscribers(t.Context())
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, first.ID, subs[0].UserID)
	assert.Equal(t, first.Email, subs[0].Email)
	assert.Len(t, subs[0].Rules, 2)
	assert.Equal(t, second.ID, subs[1].UserID)
	assert.Equal(t, "eur", subs[1].Currency)
	assert.Len(t, subs[1].Rules, 1)
}

func TestAlertRepository_TriggerHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	user := testutil.NewUser().Build(t, db)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var alerts []model.TriggeredAlert
	for i := range 3 {
		alerts = append(alerts, model.TriggeredAlert{
			UserID:      user.ID,
			Symbol:      "btc",
			Threshold:   testutil.Dec("10"),
			Price:       testutil.Dec("11"),
			Currency:    "usd",
			TriggeredAt: at.Add(time.Duration(i) * time.Hour),
		})
	}
	require.NoError(t, repo.RecordTriggered(t.Context(), alerts))

	history, err := repo.ListTriggered(t.Context(), user.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, at.Add(2*time.Hour).Equal(history[0].TriggeredAt), "newest first")
	assert.True(t, testutil.Dec("11").Equal(history[0].Price))
}
