package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
)

// ResetTokens issues password reset tokens: fernet tokens carrying the user
// id, valid for a fixed TTL. Only a hash of the last issued token is stored,
// which makes each token single use.
type ResetTokens struct {
	keys []*fernet.Key
	ttl  time.Duration
}

// NewResetTokens creates a ResetTokens from a base64 encoded fernet key.
// An empty key generates a random one, so tokens do not survive a restart.
func NewResetTokens(encodedKey string, ttl time.Duration) (*ResetTokens, error) {
	var key *fernet.Key
	if encodedKey == "" {
		key = new(fernet.Key)
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("failed to generate reset token key: %w", err)
		}
	} else {
		var err error
		if key, err = fernet.DecodeKey(encodedKey); err != nil {
			return nil, fmt.Errorf("invalid reset token key: %w", err)
		}
	}
	return &ResetTokens{keys: []*fernet.Key{key}, ttl: ttl}, nil
}

// TTL returns how long an issued token stays valid.
func (r *ResetTokens) TTL() time.Duration {
	return r.ttl
}

// Issue returns a new reset token for userID.
func (r *ResetTokens) Issue(userID string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(userID), r.keys[0])
	if err != nil {
		return "", fmt.Errorf("failed to issue reset token: %w", err)
	}
	return string(tok), nil
}

// Verify returns the user id carried by token, failing with
// apperrors.ErrInvalidToken when it is forged or older than the TTL.
func (r *ResetTokens) Verify(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), r.ttl, r.keys)
	if msg == nil {
		return "", apperrors.ErrInvalidToken
	}
	return string(msg), nil
}

// HashToken returns the hex sha256 of token for storage.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares token with a stored hash in constant time.
func TokenMatches(token, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}
