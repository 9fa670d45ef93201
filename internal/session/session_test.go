// internal/session/session_test.go
package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosgames/portal/internal/portalapi"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "u1"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

type stubRefresher struct {
	calls int
	pair  portalapi.TokenPair
	err   error
}

func (r *stubRefresher) Refresh(ctx context.Context, refreshToken string) (portalapi.TokenPair, error) {
	r.calls++
	return r.pair, r.err
}

func TestEnsureFreshSkipsValidToken(t *testing.T) {
	ref := &stubRefresher{}
	s := New(ref, nil)
	s.SetTokens(portalapi.TokenPair{
		AccessToken:  signedToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "r1",
	})

	require.NoError(t, s.EnsureFresh(context.Background()))
	assert.Equal(t, 0, ref.calls)
}

func TestEnsureFreshRotatesExpiringToken(t *testing.T) {
	fresh := portalapi.TokenPair{
		AccessToken:  signedToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "r2",
	}
	ref := &stubRefresher{pair: fresh}
	s := New(ref, nil)

	var published []portalapi.TokenPair
	s.OnTokensChanged = func(tp portalapi.TokenPair) { published = append(published, tp) }

	s.SetTokens(portalapi.TokenPair{
		AccessToken:  signedToken(t, time.Now().Add(10*time.Second)),
		RefreshToken: "r1",
	})

	require.NoError(t, s.EnsureFresh(context.Background()))
	assert.Equal(t, 1, ref.calls)
	assert.Equal(t, fresh.AccessToken, s.AccessToken())
	// SetTokens fired the callback for both the initial install and the rotation.
	require.Len(t, published, 2)
	assert.Equal(t, fresh, published[1])
}

func TestEnsureFreshTokenWithoutExpiryNeverRotates(t *testing.T) {
	ref := &stubRefresher{}
	s := New(ref, nil)
	s.SetTokens(portalapi.TokenPair{AccessToken: signedToken(t, time.Time{}), RefreshToken: "r1"})

	require.NoError(t, s.EnsureFresh(context.Background()))
	assert.Equal(t, 0, ref.calls)
}

func TestEnsureFreshRefreshFailureSurfaces(t *testing.T) {
	ref := &stubRefresher{err: errors.New("refresh token revoked")}
	s := New(ref, nil)
	old := signedToken(t, time.Now().Add(-time.Minute))
	s.SetTokens(portalapi.TokenPair{AccessToken: old, RefreshToken: "r1"})

	err := s.EnsureFresh(context.Background())
	require.Error(t, err)
	// The stale pair is kept; a later attempt may find the backend recovered.
	assert.Equal(t, old, s.AccessToken())
}

func TestEnsureFreshWithoutSession(t *testing.T) {
	s := New(nil, nil)
	assert.ErrorIs(t, s.EnsureFresh(context.Background()), ErrNotAuthenticated)
}

func TestClearDropsEverything(t *testing.T) {
	s := New(nil, nil)
	s.SetTokens(portalapi.TokenPair{AccessToken: "a", RefreshToken: "r"})
	s.SetUser(portalapi.User{ID: "u1", Nickname: "player"})

	s.Clear()
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.User().ID)
}

func TestCredentialRoundTrip(t *testing.T) {
	cs := CredentialStore{Path: filepath.Join(t.TempDir(), "creds", "portal.sealed")}
	in := Credentials{
		Email:  "player@example.com",
		Tokens: portalapi.TokenPair{AccessToken: "a1", RefreshToken: "r1"},
	}

	require.NoError(t, cs.Save("hunter2", in))

	out, err := cs.Load("hunter2")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCredentialWrongPassphrase(t *testing.T) {
	cs := CredentialStore{Path: filepath.Join(t.TempDir(), "portal.sealed")}
	require.NoError(t, cs.Save("hunter2", Credentials{Email: "player@example.com"}))

	_, err := cs.Load("*******")
	assert.ErrorIs(t, err, ErrBadPassphrase)
}

func TestCredentialMissingFile(t *testing.T) {
	cs := CredentialStore{Path: filepath.Join(t.TempDir(), "nope.sealed")}
	_, err := cs.Load("hunter2")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCredentialDeleteIdempotent(t *testing.T) {
	cs := CredentialStore{Path: filepath.Join(t.TempDir(), "portal.sealed")}
	require.NoError(t, cs.Save("hunter2", Credentials{}))
	require.NoError(t, cs.Delete())
	require.NoError(t, cs.Delete())
}
