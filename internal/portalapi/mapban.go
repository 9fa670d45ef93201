// internal/portalapi/mapban.go
package portalapi

import (
	"context"
	"fmt"
	"net/http"
)

// MapBanSession is the authoritative state of a map-banning phase. The
// backend owns it; the client mirrors it into modal state and only
// mutates a local copy when the refetch path is unreachable.
type MapBanSession struct {
	MatchID            string   `json:"matchId"`
	GameModeID         string   `json:"gameModeId,omitempty"`
	PlayerIDs          []string `json:"playerIds,omitempty"`
	PartyIDs           []string `json:"partyIds,omitempty"`
	LeaderIDs          []string `json:"leaderIds"`
	CurrentLeaderIndex int      `json:"currentLeaderIndex"`
	AvailableMaps      []string `json:"availableMaps"`
	BannedMaps         []string `json:"bannedMaps"`
	SelectedMap        string   `json:"selectedMap,omitempty"`
	IsComplete         bool     `json:"isComplete"`
}

// CurrentLeader returns the participant whose turn it is to ban, or ""
// when the leader index is out of range.
func (s *MapBanSession) CurrentLeader() string {
	if s.CurrentLeaderIndex < 0 || s.CurrentLeaderIndex >= len(s.LeaderIDs) {
		return ""
	}
	return s.LeaderIDs[s.CurrentLeaderIndex]
}

// Terminal reports whether the session can accept no further bans.
func (s *MapBanSession) Terminal() bool {
	return s.IsComplete || len(s.AvailableMaps) <= 1
}

// Ban applies one ban locally: the slug moves from availableMaps to
// bannedMaps, the leader turn advances, and the session completes when
// a single map remains. availableMaps and bannedMaps stay disjoint and
// their union is preserved.
func (s *MapBanSession) Ban(mapSlug string) error {
	if s.Terminal() {
		return fmt.Errorf("map ban session for match %s is already terminal", s.MatchID)
	}
	idx := -1
	for i, m := range s.AvailableMaps {
		if m == mapSlug {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("map %q is not available in match %s", mapSlug, s.MatchID)
	}

	s.AvailableMaps = append(s.AvailableMaps[:idx], s.AvailableMaps[idx+1:]...)
	s.BannedMaps = append(s.BannedMaps, mapSlug)

	if len(s.LeaderIDs) > 0 {
		s.CurrentLeaderIndex = (s.CurrentLeaderIndex + 1) % len(s.LeaderIDs)
	}
	if len(s.AvailableMaps) == 1 {
		s.SelectedMap = s.AvailableMaps[0]
		s.IsComplete = true
	}
	return nil
}

// GetMapBanSession fetches the current session for a match.
func (c *Client) GetMapBanSession(ctx context.Context, matchID, token string) (MapBanSession, error) {
	var s MapBanSession
	err := c.doJSON(ctx, http.MethodGet, "/map-banning/"+matchID+"/session", token, nil, &s)
	return s, err
}

// BanMap submits a leader's ban.
func (c *Client) BanMap(ctx context.Context, matchID, leaderID, mapSlug, token string) error {
	body := map[string]string{"leaderId": leaderID, "mapSlug": mapSlug}
	return c.doJSON(ctx, http.MethodPost, "/map-banning/"+matchID+"/ban", token, body, nil)
}

// BanTimeout reports a leader turn timeout; the backend auto-bans a
// random map.
func (c *Client) BanTimeout(ctx context.Context, matchID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/map-banning/"+matchID+"/timeout", token, nil, nil)
}

// CleanupMapBanSession discards a finished or abandoned session.
func (c *Client) CleanupMapBanSession(ctx context.Context, matchID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/map-banning/"+matchID+"/cleanup", token, nil, nil)
}
