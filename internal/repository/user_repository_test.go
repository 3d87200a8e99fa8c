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

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	now := time.Now().UTC()

	user := model.User{
		ID:              testutil.MakeID(),
		Name:            "Ada",
		Email:           testutil.MakeEmail("ada"),
		PasswordHash:    "hash",
		Role:            model.RoleAdmin,
		Active:          true,
		DefaultCurrency: "eur",
		AlertsEnabled:   true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(t.Context(), user))

	byID, err := repo.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, model.RoleAdmin, byID.Role)
	assert.Equal(t, "eur", byID.DefaultCurrency)
	assert.True(t, byID.AlertsEnabled)
	assert.Zero(t, byID.Version)
	assert.Nil(t, byID.ResetTokenExpires)

	byEmail, err := repo.GetByEmail(t.Context(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	user.ID = testutil.MakeID()
	assert.True(t, errors.Is(repo.Create(t.Context(), user), apperrors.ErrEmailExists))

	_, err = repo.GetByID(t.Context(), testutil.MakeID())
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
	_, err = repo.GetByEmail(t.Context(), "nobody@example.com")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
}

func TestUserRepository_Tokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.NewUser().Build(t, db)

	require.NoError(t, repo.SetRefreshTokenID(t.Context(), user.ID, "jti-1"))
	expires := time.Now().Add(time.Hour).UTC()
	require.NoError(t, repo.SetResetToken(t.Context(), user.ID, "reset-hash", &expires))

	stored, err := repo.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jti-1", stored.RefreshTokenID)
	assert.Equal(t, "reset-hash", stored.ResetTokenHash)
	require.NotNil(t, stored.ResetTokenExpires)
	assert.True(t, expires.Equal(*stored.ResetTokenExpires))

	require.NoError(t, repo.UpdatePassword(t.Context(), user.ID, "new-hash", time.Now()))

	stored, err = repo.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)
	assert.Empty(t, stored.RefreshTokenID)
	assert.Empty(t, stored.ResetTokenHash)
	assert.Nil(t, stored.ResetTokenExpires)

	err = repo.SetRefreshTokenID(t.Context(), testutil.MakeID(), "x")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
}

func TestUserRepository_CommitWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.NewUser().Build(t, db)

	require.NoError(t, repo.CommitWrite(t.Context(), user.ID, 0, 2))

	stored, err := repo.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, int64(2), stored.TransactionCount)

	err = repo.CommitWrite(t.Context(), user.ID, 0, 1)
	assert.True(t, errors.Is(err, apperrors.ErrConcurrentModification))
}

func TestUserRepository_WithTxRollback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.NewUser().Build(t, db)

	tx, err := db.BeginTx(t.Context(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.WithTx(tx).UpdatePreferences(t.Context(), user.ID, "jpy", false, time.Now()))
	require.NoError(t, tx.Rollback())

	stored, err := repo.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "usd", stored.DefaultCurrency)
	assert.True(t, stored.AlertsEnabled)
}

func TestUserRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)

	users, err := repo.List(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	testutil.NewUser().Build(t, db)
	testutil.NewUser().Build(t, db)

	users, err = repo.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
