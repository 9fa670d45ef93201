// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"github.com/bosgames/portal/internal/portalapi"
)

// ErrNotAuthenticated is returned when an operation needs tokens and the
// session has none.
var ErrNotAuthenticated = errors.New("no active session")

// refreshSkew is how close to expiry the access token may get before
// EnsureFresh rotates it.
const refreshSkew = 60 * time.Second

// Refresher exchanges a refresh token for a new pair. The portalapi
// client satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (portalapi.TokenPair, error)
}

// Session holds the authenticated user's token pair and keeps the
// access token fresh. The zero value is an unauthenticated session.
type Session struct {
	refresher Refresher
	logger    *log.Logger

	mu     sync.Mutex
	tokens portalapi.TokenPair
	user   portalapi.User

	// OnTokensChanged is invoked (outside the lock) whenever the pair
	// rotates, so the host can re-seal its credential cache.
	OnTokensChanged func(portalapi.TokenPair)
}

func New(refresher Refresher, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Session{refresher: refresher, logger: logger}
}

// SetTokens installs a freshly issued pair, e.g. after login.
func (s *Session) SetTokens(tp portalapi.TokenPair) {
	s.mu.Lock()
	s.tokens = tp
	cb := s.OnTokensChanged
	s.mu.Unlock()
	if cb != nil {
		cb(tp)
	}
}

// SetUser caches the profile fetched after login.
func (s *Session) SetUser(u portalapi.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// User returns the cached profile.
func (s *Session) User() portalapi.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// AccessToken returns the current access token, empty when logged out.
// Use EnsureFresh first when the token will cross the network.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.AccessToken
}

// Authenticated reports whether a token pair is installed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.AccessToken != ""
}

// Clear drops the tokens and profile, e.g. after logout.
func (s *Session) Clear() {
	s.mu.Lock()
	s.tokens = portalapi.TokenPair{}
	s.user = portalapi.User{}
	s.mu.Unlock()
}

// EnsureFresh rotates the token pair when the access token is expired
// or about to expire. Tokens without an exp claim never rotate.
func (s *Session) EnsureFresh(ctx context.Context) error {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()

	if tokens.AccessToken == "" {
		return ErrNotAuthenticated
	}
	exp, ok := tokenExpiry(tokens.AccessToken)
	if !ok || time.Until(exp) > refreshSkew {
		return nil
	}
	if s.refresher == nil || tokens.RefreshToken == "" {
		return fmt.Errorf("access token expires at %s and no refresh path is available", exp.Format(time.RFC3339))
	}

	fresh, err := s.refresher.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	s.logger.Debug("access token rotated")
	s.SetTokens(fresh)
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature. The
// backend signed the token; the client only needs the deadline.
func tokenExpiry(tokenString string) (time.Time, bool) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
