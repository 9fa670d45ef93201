// internal/portalapi/matchmaking.go
package portalapi

import (
	"context"
	"net/http"
)

// AcceptMatch confirms the user's participation in a found match.
func (c *Client) AcceptMatch(ctx context.Context, matchID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/match-acceptance/"+matchID+"/accept", token, nil, nil)
}

// DeclineMatch rejects a found match; the user returns to the queue at
// their own pace.
func (c *Client) DeclineMatch(ctx context.Context, matchID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/match-acceptance/"+matchID+"/decline", token, nil, nil)
}

// MatchmakingStatus is the backend's answer to a queue-status poll.
type MatchmakingStatus struct {
	InQueue       bool   `json:"inQueue"`
	GameModeID    string `json:"gameModeId,omitempty"`
	QueuedPlayers int    `json:"queuedPlayers,omitempty"`
	MatchID       string `json:"matchId,omitempty"`
}

// JoinSoloMatchmaking queues the user's solo party for a game mode.
func (c *Client) JoinSoloMatchmaking(ctx context.Context, gameModeID, token string) error {
	body := map[string]string{"gameModeId": gameModeID}
	return c.doJSON(ctx, http.MethodPost, "/parties/solo/join-matchmaking", token, body, nil)
}

// LeaveSoloMatchmaking removes the user's solo party from the queue.
func (c *Client) LeaveSoloMatchmaking(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/solo/leave-matchmaking", token, nil, nil)
}

// SoloMatchmakingStatus polls the queue state for a game mode.
func (c *Client) SoloMatchmakingStatus(ctx context.Context, gameModeID, token string) (MatchmakingStatus, error) {
	var st MatchmakingStatus
	err := c.doJSON(ctx, http.MethodGet, "/parties/solo/matchmaking-status/"+gameModeID, token, nil, &st)
	return st, err
}
