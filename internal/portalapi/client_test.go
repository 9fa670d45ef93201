// internal/portalapi/client_test.go
package portalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/email":
			require.Equal(t, http.MethodPost, r.Method)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice@example.com", body["email"])
			json.NewEncoder(w).Encode(TokenPair{AccessToken: "tok", RefreshToken: "ref"})
		case "/users/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(User{ID: "u1", Nickname: "alice"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	pair, err := c.Login(ctx, "alice@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "tok", pair.AccessToken)

	me, err := c.Me(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Nickname)
}

func TestAPIErrorSurfacesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "already accepted"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	err := c.AcceptMatch(context.Background(), "m1", "tok")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "already accepted", apiErr.Message)
}

func TestGetMapBanSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/map-banning/m1/session", r.URL.Path)
		json.NewEncoder(w).Encode(MapBanSession{
			MatchID:       "m1",
			LeaderIDs:     []string{"l1", "l2"},
			AvailableMaps: []string{"dust2", "mirage", "inferno"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	s, err := c.GetMapBanSession(context.Background(), "m1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "l1", s.CurrentLeader())
	assert.False(t, s.Terminal())
}

func TestBanMapSendsLeaderAndSlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/map-banning/m1/ban", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "l1", body["leaderId"])
		assert.Equal(t, "dust2", body["mapSlug"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	require.NoError(t, c.BanMap(context.Background(), "m1", "l1", "dust2", "tok"))
}

func TestSessionBanKeepsInvariants(t *testing.T) {
	original := []string{"dust2", "mirage", "inferno", "nuke"}
	s := MapBanSession{
		MatchID:       "m1",
		LeaderIDs:     []string{"l1", "l2"},
		AvailableMaps: append([]string(nil), original...),
	}

	for _, slug := range []string{"dust2", "nuke", "mirage"} {
		require.NoError(t, s.Ban(slug))

		// availableMaps and bannedMaps stay disjoint and their union
		// equals the original availableMaps after every ban.
		seen := map[string]int{}
		for _, m := range s.AvailableMaps {
			seen[m]++
		}
		for _, m := range s.BannedMaps {
			seen[m]++
		}
		require.Len(t, seen, len(original))
		for _, m := range original {
			assert.Equal(t, 1, seen[m], "map %s duplicated or lost", m)
		}
	}

	assert.True(t, s.IsComplete)
	assert.Equal(t, "inferno", s.SelectedMap)
	assert.Error(t, s.Ban("inferno"), "terminal session rejects further bans")
}

func TestSessionBanRotatesLeader(t *testing.T) {
	s := MapBanSession{
		LeaderIDs:     []string{"l1", "l2"},
		AvailableMaps: []string{"a", "b", "c", "d"},
	}
	require.NoError(t, s.Ban("a"))
	assert.Equal(t, "l2", s.CurrentLeader())
	require.NoError(t, s.Ban("b"))
	assert.Equal(t, "l1", s.CurrentLeader())
}

func TestSessionBanUnknownMap(t *testing.T) {
	s := MapBanSession{AvailableMaps: []string{"a", "b"}, BannedMaps: []string{"c"}}
	assert.Error(t, s.Ban("c"), "already-banned map is not available")
	assert.Error(t, s.Ban("zzz"))
}
