// internal/portalapi/auth.go
package portalapi

import (
	"context"
	"net/http"
)

// TokenPair is the backend's bearer-token issuance response.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User is the authenticated user's profile as the backend reports it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Country   string `json:"country,omitempty"`
	SteamID   string `json:"steamId,omitempty"`
}

// Login exchanges email/password credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"email": email, "password": password}
	err := c.doJSON(ctx, http.MethodPost, "/auth/login/email", "", body, &pair)
	return pair, err
}

// RegisterAccount starts the registration flow. The returned temp token
// authorizes the follow-up profile and country steps.
func (c *Client) RegisterAccount(ctx context.Context, email, password string) (TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"email": email, "password": password}
	err := c.doJSON(ctx, http.MethodPost, "/auth/register/account", "", body, &pair)
	return pair, err
}

// VerifyEmail submits a verification code during registration.
func (c *Client) VerifyEmail(ctx context.Context, code, tempToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/register/verify-email", tempToken,
		map[string]string{"code": code}, nil)
}

// RegisterProfile fills in the nickname/name step of registration.
func (c *Client) RegisterProfile(ctx context.Context, nickname, firstName, lastName, tempToken string) error {
	body := map[string]string{
		"nickname":  nickname,
		"firstName": firstName,
		"lastName":  lastName,
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/register/profile", tempToken, body, nil)
}

// RegisterCountry completes registration with the user's country.
func (c *Client) RegisterCountry(ctx context.Context, country, tempToken string) (TokenPair, error) {
	var pair TokenPair
	err := c.doJSON(ctx, http.MethodPost, "/auth/register/country", tempToken,
		map[string]string{"country": country}, &pair)
	return pair, err
}

// Refresh trades a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", "",
		map[string]string{"refreshToken": refreshToken}, &pair)
	return pair, err
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodGet, "/users/me", token, nil, &u)
	return u, err
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}
