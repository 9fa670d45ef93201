// internal/portalapi/parties.go
package portalapi

import (
	"context"
	"net/http"
)

// Party groups one or two teams (or solo players) for matchmaking.
type Party struct {
	ID         string   `json:"id"`
	GameModeID string   `json:"gameModeId,omitempty"`
	TeamIDs    []string `json:"teamIds,omitempty"`
	PlayerIDs  []string `json:"playerIds,omitempty"`
	Ready      bool     `json:"ready"`
	Solo       bool     `json:"solo,omitempty"`
}

// PartyInvite is a pending invitation for a team to join a party.
type PartyInvite struct {
	ID      string `json:"id"`
	PartyID string `json:"partyId"`
	TeamID  string `json:"teamId"`
	Status  string `json:"status"`
}

// GameMode describes one queueable mode.
type GameMode struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TeamSize int    `json:"teamSize,omitempty"`
}

// CreateParty makes a party around the given team.
func (c *Client) CreateParty(ctx context.Context, teamID, token string) (Party, error) {
	var p Party
	err := c.doJSON(ctx, http.MethodPost, "/parties", token, map[string]string{"teamId": teamID}, &p)
	return p, err
}

// CreateSoloParty makes a single-player party for a game mode.
func (c *Client) CreateSoloParty(ctx context.Context, gameModeID, token string) (Party, error) {
	var p Party
	err := c.doJSON(ctx, http.MethodPost, "/parties/solo", token,
		map[string]string{"gameModeId": gameModeID}, &p)
	return p, err
}

// MyParties lists parties the user currently belongs to.
func (c *Client) MyParties(ctx context.Context, token string) ([]Party, error) {
	var parties []Party
	err := c.doJSON(ctx, http.MethodGet, "/parties/me", token, nil, &parties)
	return parties, err
}

// AvailableSoloGameModes lists modes open for solo queueing.
func (c *Client) AvailableSoloGameModes(ctx context.Context, token string) ([]GameMode, error) {
	var modes []GameMode
	err := c.doJSON(ctx, http.MethodGet, "/parties/solo/available-game-modes", token, nil, &modes)
	return modes, err
}

// InviteTeamToParty invites a team into a party.
func (c *Client) InviteTeamToParty(ctx context.Context, partyID, teamID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/"+partyID+"/invite-team/"+teamID, token, nil, nil)
}

// PartyInvites lists party invites awaiting the user's answer.
func (c *Client) PartyInvites(ctx context.Context, token string) ([]PartyInvite, error) {
	var invites []PartyInvite
	err := c.doJSON(ctx, http.MethodGet, "/parties/invites", token, nil, &invites)
	return invites, err
}

// AcceptPartyInvite accepts an invite into the given party.
func (c *Client) AcceptPartyInvite(ctx context.Context, partyID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/"+partyID+"/accept", token, nil, nil)
}

// DeclinePartyInvite declines an invite into the given party.
func (c *Client) DeclinePartyInvite(ctx context.Context, partyID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/"+partyID+"/decline", token, nil, nil)
}

// SetPartyReady marks the user's side of the party ready.
func (c *Client) SetPartyReady(ctx context.Context, partyID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/"+partyID+"/ready", token, nil, nil)
}

// UnsetPartyReady withdraws readiness.
func (c *Client) UnsetPartyReady(ctx context.Context, partyID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/"+partyID+"/unready", token, nil, nil)
}

// LeaveParty removes the user (or their team) from the party.
func (c *Client) LeaveParty(ctx context.Context, partyID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/parties/"+partyID+"/leave", token, nil, nil)
}
