// internal/portalapi/teams.go
package portalapi

import (
	"context"
	"net/http"
)

// Team is a named roster of players for one game mode.
type Team struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	GameModeID string   `json:"gameModeId"`
	OwnerID    string   `json:"ownerId"`
	MemberIDs  []string `json:"memberIds,omitempty"`
}

// TeamInvite is a pending invitation to join a team.
type TeamInvite struct {
	ID       string `json:"id"`
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName,omitempty"`
	UserID   string `json:"userId"`
	Status   string `json:"status"`
}

// CreateTeam registers a new team for a game mode.
func (c *Client) CreateTeam(ctx context.Context, name, gameModeID, token string) (Team, error) {
	var team Team
	body := map[string]string{"name": name, "gameModeId": gameModeID}
	err := c.doJSON(ctx, http.MethodPost, "/teams", token, body, &team)
	return team, err
}

// Teams lists the user's teams for one game mode.
func (c *Client) Teams(ctx context.Context, gameModeID, token string) ([]Team, error) {
	var teams []Team
	err := c.doJSON(ctx, http.MethodGet, "/teams/game-mode/"+gameModeID, token, nil, &teams)
	return teams, err
}

// AllTeams lists every team the user belongs to.
func (c *Client) AllTeams(ctx context.Context, token string) ([]Team, error) {
	var teams []Team
	err := c.doJSON(ctx, http.MethodGet, "/teams", token, nil, &teams)
	return teams, err
}

// InviteToTeam invites a user to a team.
func (c *Client) InviteToTeam(ctx context.Context, teamID, userID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/team-invites/"+teamID+"/"+userID, token, nil, nil)
}

// InviteFriendToTeam invites one of the user's friends to a team.
func (c *Client) InviteFriendToTeam(ctx context.Context, teamID, friendID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/teams/"+teamID+"/invite-friend/"+friendID, token, nil, nil)
}

// ReceivedTeamInvites lists invites awaiting the user's answer.
func (c *Client) ReceivedTeamInvites(ctx context.Context, token string) ([]TeamInvite, error) {
	var invites []TeamInvite
	err := c.doJSON(ctx, http.MethodGet, "/team-invites/received", token, nil, &invites)
	return invites, err
}

// AcceptTeamInvite accepts a team invite by its id.
func (c *Client) AcceptTeamInvite(ctx context.Context, inviteID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/team-invites/"+inviteID+"/accept", token, nil, nil)
}

// DeclineTeamInvite declines a team invite by its id.
func (c *Client) DeclineTeamInvite(ctx context.Context, inviteID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/team-invites/"+inviteID+"/decline", token, nil, nil)
}
