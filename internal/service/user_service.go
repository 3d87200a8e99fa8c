package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/auth"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// UserService handles account registration and profile settings.
type UserService struct {
	userRepo        *repository.UserRepository
	bcryptCost      int
	defaultCurrency string
	logger          *logging.Logger
	now             func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(userRepo *repository.UserRepository, bcryptCost int, defaultCurrency string, logger *logging.Logger) *UserService {
	return &UserService{
		userRepo:        userRepo,
		bcryptCost:      bcryptCost,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

// Register creates an active USER account with alerts enabled.
func (s *UserService) Register(ctx context.Context, req request.RegisterRequest) (model.User, error) {
	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	now := s.now().UTC()
	user := model.User{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Email:           req.Email,
		PasswordHash:    hash,
		Role:            model.RoleUser,
		Active:          true,
		DefaultCurrency: s.defaultCurrency,
		AlertsEnabled:   true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return model.User{}, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// GetUser returns the profile of a user.
func (s *UserService) GetUser(ctx context.Context, userID string) (model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}

// UpdatePreferences changes the default currency and the alert switch.
// Fields left nil in the request keep their current value.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, req request.UpdatePreferencesRequest) (model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	if req.DefaultCurrency != nil {
		user.DefaultCurrency = *req.DefaultCurrency
	}
	if req.EnableAlerts != nil {
		user.AlertsEnabled = *req.EnableAlerts
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.userRepo.UpdatePreferences(ctx, userID, user.DefaultCurrency, user.AlertsEnabled, user.UpdatedAt); err != nil {
		return model.User{}, err
	}
	return user, nil
}
