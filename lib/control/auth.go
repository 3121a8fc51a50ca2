package control

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-otbr/go-otbr/lib/util/logger"
	"github.com/go-otbr/go-otbr/lib/util/time/monotonic"
)

// AuthManager handles token-based authentication for the control RPC.
// It generates HMAC-SHA256 tokens for authenticated clients and validates
// tokens with expiration checking. Thread-safe for concurrent access.
//
// Token lifetimes run on the monotonic clock, so NTP corrections to the
// wall clock can neither lengthen nor shorten a session.
//
// Authentication flow:
//  1. Client sends password via Authenticate method
//  2. Server validates password and generates token
//  3. Token stored with an expiration deadline
//  4. Client includes token in subsequent RPC requests
//  5. Server validates token before processing requests
type AuthManager struct {
	password string                         // Configured password for authentication
	tokens   map[string]*monotonic.Deadline // Active tokens with expiration deadlines
	mu       sync.RWMutex                   // Protects password and tokens map
	secret   []byte                         // HMAC secret key for token generation
}

// NewAuthManager creates a new authentication manager. The password is used
// to validate authentication requests; a random secret key is generated for
// HMAC token signing, so tokens are unique per server instance.
//
// Returns an error if random secret generation fails.
func NewAuthManager(password string) (*AuthManager, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate HMAC secret: %w", err)
	}

	return &AuthManager{
		password: password,
		tokens:   make(map[string]*monotonic.Deadline),
		secret:   secret,
	}, nil
}

// Authenticate validates a password and generates an access token valid for
// the given expiration. The token is a base64-encoded HMAC-SHA256 signature
// of the current timestamp, so each token is unique even for rapid requests.
//
// The password comparison is constant-time to prevent timing attacks.
func (am *AuthManager) Authenticate(password string, expiration time.Duration) (string, error) {
	// Read password with lock to prevent race with ChangePassword
	am.mu.RLock()
	currentPassword := am.password
	am.mu.RUnlock()

	if !hmac.Equal([]byte(password), []byte(currentPassword)) {
		return "", fmt.Errorf("invalid password")
	}

	timestamp := time.Now().UnixNano()
	token := am.generateToken(timestamp)

	// Non-positive expirations collapse to an already-expired deadline.
	if expiration < 0 {
		expiration = 0
	}

	am.mu.Lock()
	am.tokens[token] = monotonic.NewDeadline(expiration)
	am.mu.Unlock()

	log.WithField("at", "AuthManager.Authenticate").
		Debug("generated authentication token")

	return token, nil
}

// ValidateToken checks if a token is valid and not expired.
// Expired tokens are removed from storage as a side effect.
func (am *AuthManager) ValidateToken(token string) bool {
	am.mu.RLock()
	deadline, exists := am.tokens[token]
	am.mu.RUnlock()

	if !exists {
		return false
	}

	if deadline.IsExpired() {
		am.mu.Lock()
		delete(am.tokens, token)
		am.mu.Unlock()

		log.WithField("at", "AuthManager.ValidateToken").
			Debug("token expired and removed")
		return false
	}

	return true
}

// RevokeToken removes a token from the valid token set.
// Used for explicit logout or token invalidation.
func (am *AuthManager) RevokeToken(token string) {
	am.mu.Lock()
	delete(am.tokens, token)
	am.mu.Unlock()

	log.WithField("at", "AuthManager.RevokeToken").
		Debug("token revoked")
}

// CleanupExpiredTokens removes all expired tokens from storage and returns
// how many were removed. Called periodically by the server to prevent
// memory growth from expired tokens.
func (am *AuthManager) CleanupExpiredTokens() int {
	removed := 0

	am.mu.Lock()
	for token, deadline := range am.tokens {
		if deadline.IsExpired() {
			delete(am.tokens, token)
			removed++
		}
	}
	am.mu.Unlock()

	if removed > 0 {
		log.WithFields(logger.Fields{
			"at":      "AuthManager.CleanupExpiredTokens",
			"removed": removed,
		}).Debug("cleaned up expired tokens")
	}

	return removed
}

// TokenCount returns the number of active tokens.
func (am *AuthManager) TokenCount() int {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return len(am.tokens)
}

// ChangePassword updates the authentication password, revokes all existing
// tokens, and returns how many tokens were revoked. All clients must
// re-authenticate with the new password.
func (am *AuthManager) ChangePassword(newPassword string) int {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.password = newPassword

	revokedCount := len(am.tokens)
	am.tokens = make(map[string]*monotonic.Deadline)

	log.WithFields(logger.Fields{
		"at":      "AuthManager.ChangePassword",
		"revoked": revokedCount,
	}).Info("password changed, all tokens revoked")

	return revokedCount
}

// generateToken creates a token from a timestamp: HMAC-SHA256 over the
// decimal timestamp with the server secret, base64-encoded for JSON
// transport. Tokens cannot be forged without knowing the secret.
func (am *AuthManager) generateToken(timestamp int64) string {
	h := hmac.New(sha256.New, am.secret)
	h.Write([]byte(fmt.Sprintf("%d", timestamp)))
	signature := h.Sum(nil)

	return base64.StdEncoding.EncodeToString(signature)
}
