package service

import (
	"context"
	"errors"
	"time"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/auth"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/mail"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
)

// AuthService issues and verifies credentials.
//
// Refresh tokens are single use: the id of the latest one is stored on the
// user and rotated on every refresh. Logging out clears it.
type AuthService struct {
	userRepo   *repository.UserRepository
	tokens     *auth.TokenIssuer
	reset      *auth.ResetTokens
	mailer     mail.Mailer
	clientURL  string
	bcryptCost int
	logger     *logging.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo *repository.UserRepository,
	tokens *auth.TokenIssuer,
	reset *auth.ResetTokens,
	mailer mail.Mailer,
	clientURL string,
	bcryptCost int,
	logger *logging.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		reset:      reset,
		mailer:     mailer,
		clientURL:  clientURL,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Login checks the credentials and returns a fresh token pair. Unknown
// emails, wrong passwords and inactive accounts all yield
// apperrors.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req request.LoginRequest) (model.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return model.TokenPair{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return model.TokenPair{}, err
	}
	if !user.Active {
		return model.TokenPair{}, apperrors.ErrInvalidCredentials
	}
	return s.issuePair(ctx, user)
}

// Refresh exchanges a valid, current refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, req request.RefreshRequest) (model.TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return model.TokenPair{}, apperrors.ErrInvalidToken
	}
	if err != nil {
		return model.TokenPair{}, err
	}
	if !user.Active || user.RefreshTokenID == "" || user.RefreshTokenID != claims.ID {
		return model.TokenPair{}, apperrors.ErrInvalidToken
	}
	return s.issuePair(ctx, user)
}

func (s *AuthService) issuePair(ctx context.Context, user model.User) (model.TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, jti, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.userRepo.SetRefreshTokenID(ctx, user.ID, jti); err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout invalidates the user's refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.userRepo.SetRefreshTokenID(ctx, userID, "")
}

// Authenticate resolves an access token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.User, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return model.User{}, apperrors.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, err
	}
	if !user.Active {
		return model.User{}, apperrors.ErrInvalidToken
	}
	return user, nil
}

// ForgotPassword emails a reset link when the address belongs to an account.
// It reports success either way so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, req request.ForgotPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		s.logger.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.reset.Issue(user.ID)
	if err != nil {
		return err
	}
	expires := s.now().UTC().Add(s.reset.TTL())
	if err := s.userRepo.SetResetToken(ctx, user.ID, auth.HashToken(token), &expires); err != nil {
		return err
	}

	msg := mail.PasswordReset(user.Email, user.Name, s.clientURL, token, s.reset.TTL())
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to send password reset email")
	}
	return nil
}

// ResetPassword sets a new password using a token from ForgotPassword. The
// token is single use and also logs out every session.
func (s *AuthService) ResetPassword(ctx context.Context, req request.ResetPasswordRequest) error {
	userID, err := s.reset.Verify(req.Token)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return apperrors.ErrInvalidToken
	}
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if user.ResetTokenExpires == nil || now.After(*user.ResetTokenExpires) {
		return apperrors.ErrInvalidToken
	}
	if !auth.TokenMatches(req.Token, user.ResetTokenHash) {
		return apperrors.ErrInvalidToken
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}
