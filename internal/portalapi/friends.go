// internal/portalapi/friends.go
package portalapi

import (
	"context"
	"net/http"
)

// FriendRequest is one pending friendship edge.
type FriendRequest struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	TargetID  string `json:"targetId"`
	Status    string `json:"status"` // pending, accepted, declined
	CreatedAt string `json:"createdAt,omitempty"`
}

// Friend is an established friendship as the backend reports it.
type Friend struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Online   bool   `json:"online,omitempty"`
}

// SendFriendRequest asks another user for friendship.
func (c *Client) SendFriendRequest(ctx context.Context, userID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/friend-requests/"+userID, token, nil, nil)
}

// ReceivedFriendRequests lists requests awaiting the user's answer.
func (c *Client) ReceivedFriendRequests(ctx context.Context, token string) ([]FriendRequest, error) {
	var reqs []FriendRequest
	err := c.doJSON(ctx, http.MethodGet, "/friend-requests/received", token, nil, &reqs)
	return reqs, err
}

// SentFriendRequests lists requests the user has sent.
func (c *Client) SentFriendRequests(ctx context.Context, token string) ([]FriendRequest, error) {
	var reqs []FriendRequest
	err := c.doJSON(ctx, http.MethodGet, "/friend-requests/sent", token, nil, &reqs)
	return reqs, err
}

// AcceptFriendRequest accepts a received request by its id.
func (c *Client) AcceptFriendRequest(ctx context.Context, requestID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/friend-requests/"+requestID+"/accept", token, nil, nil)
}

// DeclineFriendRequest declines a received request by its id.
func (c *Client) DeclineFriendRequest(ctx context.Context, requestID, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/friend-requests/"+requestID+"/decline", token, nil, nil)
}

// Friends lists the user's established friendships.
func (c *Client) Friends(ctx context.Context, token string) ([]Friend, error) {
	var friends []Friend
	err := c.doJSON(ctx, http.MethodGet, "/friends", token, nil, &friends)
	return friends, err
}
