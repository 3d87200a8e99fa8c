// Package auth issues and verifies the credentials used by the API: JWT
// access and refresh tokens, password reset tokens and password hashes.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

const (
	issuer          = "crypto-portfolio-tracker"
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

// Claims is the JWT payload of both token kinds. Subject holds the user id
// and ID the token id; Role is only set on access tokens.
type Claims struct {
	Role model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets and audiences so one can never stand in for the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessTTL returns the lifetime of access tokens.
func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *TokenIssuer) sign(userID string, role model.Role, audience string, ttl time.Duration, secret []byte) (string, string, error) {
	now := i.now()
	id := uuid.New().String()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, id, nil
}

// IssueAccess returns a short lived access token for the user.
func (i *TokenIssuer) IssueAccess(userID string, role model.Role) (string, error) {
	token, _, err := i.sign(userID, role, audienceAccess, i.accessTTL, i.accessSecret)
	return token, err
}

// IssueRefresh returns a refresh token and its id. The id is stored with the
// user so that only the most recent refresh token is accepted.
func (i *TokenIssuer) IssueRefresh(userID string) (string, string, error) {
	return i.sign(userID, "", audienceRefresh, i.refreshTTL, i.refreshSecret)
}

func (i *TokenIssuer) parse(tokenString, audience string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", apperrors.ErrInvalidToken)
	}
	return claims, nil
}

// ParseAccess verifies an access token.
func (i *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, audienceAccess, i.accessSecret)
}

// ParseRefresh verifies a refresh token. The caller still has to compare the
// token id with the one stored for the user.
func (i *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, audienceRefresh, i.refreshSecret)
}
