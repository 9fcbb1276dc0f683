package siteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// OTPClient implements the token-handshake API family: mint a one-time
// token for a user, then poll whether the token was redeemed by a vote.
type OTPClient struct {
	http *http.Client
}

func NewOTPClient() *OTPClient {
	return &OTPClient{http: newHTTPClient()}
}

var _ ports.OTPClient = (*OTPClient)(nil)

func (c *OTPClient) IssueToken(ctx context.Context, site *domain.VoteSite, userID string) (string, error) {
	body, err := json.Marshal(map[string]string{"user": userID})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(site.APIBase, "/api/tokens"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", site.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", unexpectedStatus(resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("site %s returned an empty token", site.Slug)
	}
	return out.Token, nil
}

// CheckRedemption asks whether the token's vote went through. A 404 means
// the token is unknown or not yet redeemed, not an error.
func (c *OTPClient) CheckRedemption(ctx context.Context, site *domain.VoteSite, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(site.APIBase, "/api/tokens/"+url.PathEscape(token)), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build redemption request: %w", err)
	}
	req.Header.Set("Authorization", site.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("redemption request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, unexpectedStatus(resp)
	}

	var out struct {
		Voted bool `json:"voted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode redemption response: %w", err)
	}
	return out.Voted, nil
}
