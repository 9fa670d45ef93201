// internal/portalapi/livematch.go
package portalapi

import (
	"context"
	"net/http"
)

// LiveMatchPlayer is one player's running scoreline in a live match.
type LiveMatchPlayer struct {
	SteamID       string `json:"steamId"`
	Nickname      string `json:"nickname"`
	Team          int    `json:"team"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	MVPs          int    `json:"mvps"`
	HeadshotKills int    `json:"headshotKills"`
	Damage        int    `json:"damage"`
	Connected     bool   `json:"connected"`
}

// LiveMatchRound is one finished round's outcome.
type LiveMatchRound struct {
	RoundNumber int    `json:"roundNumber"`
	Winner      string `json:"winner"` // team1, team2, draw
	Team1Score  int    `json:"team1Score"`
	Team2Score  int    `json:"team2Score"`
	Duration    int    `json:"duration,omitempty"`
}

// LiveMatch is the running state of a match in progress.
type LiveMatch struct {
	MatchID      string            `json:"matchId"`
	ServerIP     string            `json:"serverIp,omitempty"`
	ServerPort   int               `json:"serverPort,omitempty"`
	SelectedMap  string            `json:"selectedMap,omitempty"`
	Status       string            `json:"status"` // loading, live, ended, error
	CurrentRound int               `json:"currentRound,omitempty"`
	TotalRounds  int               `json:"totalRounds,omitempty"`
	Team1Score   int               `json:"team1Score,omitempty"`
	Team2Score   int               `json:"team2Score,omitempty"`
	Team1Name    string            `json:"team1Name,omitempty"`
	Team2Name    string            `json:"team2Name,omitempty"`
	Players      []LiveMatchPlayer `json:"players,omitempty"`
	RoundHistory []LiveMatchRound  `json:"roundHistory,omitempty"`
	StartedAt    string            `json:"startedAt"`
}

// LiveMatchList is a page of the user's live matches.
type LiveMatchList struct {
	Matches    []LiveMatch `json:"matches"`
	TotalCount int         `json:"totalCount"`
}

// UserLiveMatches lists the live matches the user participates in.
func (c *Client) UserLiveMatches(ctx context.Context, token string) (LiveMatchList, error) {
	var list LiveMatchList
	err := c.doJSON(ctx, http.MethodGet, "/api/live-matches", token, nil, &list)
	return list, err
}

// GetLiveMatch fetches one live match by id.
func (c *Client) GetLiveMatch(ctx context.Context, matchID, token string) (LiveMatch, error) {
	var m LiveMatch
	err := c.doJSON(ctx, http.MethodGet, "/api/live-matches/"+matchID, token, nil, &m)
	return m, err
}
