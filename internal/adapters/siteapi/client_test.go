package siteapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftlands/votegate/internal/core/domain"
)

func siteAt(baseURL string) *domain.VoteSite {
	return &domain.VoteSite{
		TenantID: "guild-1",
		Slug:     "serverscout.io",
		APIBase:  baseURL,
		APIKey:   "api-key-1",
	}
}

func TestOTPClientIssueToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tokens", r.URL.Path)
		assert.Equal(t, "api-key-1", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["user"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
	}))
	defer server.Close()

	client := NewOTPClient()
	token, err := client.IssueToken(context.Background(), siteAt(server.URL), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}

func TestOTPClientIssueTokenEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))
	defer server.Close()

	client := NewOTPClient()
	_, err := client.IssueToken(context.Background(), siteAt(server.URL), "user-1")
	assert.Error(t, err)
}

func TestOTPClientCheckRedemption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tokens/tok-redeemed":
			json.NewEncoder(w).Encode(map[string]bool{"voted": true})
		case "/api/tokens/tok-pending":
			json.NewEncoder(w).Encode(map[string]bool{"voted": false})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewOTPClient()
	site := siteAt(server.URL)

	redeemed, err := client.CheckRedemption(context.Background(), site, "tok-redeemed")
	require.NoError(t, err)
	assert.True(t, redeemed)

	redeemed, err = client.CheckRedemption(context.Background(), site, "tok-pending")
	require.NoError(t, err)
	assert.False(t, redeemed)

	// Unknown token answers 404, which is "not redeemed", not an error.
	redeemed, err = client.CheckRedemption(context.Background(), site, "tok-unknown")
	require.NoError(t, err)
	assert.False(t, redeemed)
}

func TestOTPClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOTPClient()
	_, err := client.CheckRedemption(context.Background(), siteAt(server.URL), "tok-1")
	assert.Error(t, err)
}

func TestMinelistClientCheckVote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/votes", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("user"))
		assert.Equal(t, "true", r.URL.Query().Get("unclaimed"))

		json.NewEncoder(w).Encode(map[string]any{
			"votes": []map[string]any{
				{"id": "old-1", "claimed": true},
				{"id": "8831", "claimed": false},
			},
		})
	}))
	defer server.Close()

	site := siteAt(server.URL)
	site.Slug = "minelist.net"

	client := NewMinelistClient()
	result, err := client.CheckVote(context.Background(), site, "user-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "minelist.net-8831", result.ExternalVoteID)
	assert.True(t, result.Claimable)
}

func TestMinelistClientNoUnclaimedVotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"votes": []map[string]any{{"id": "old-1", "claimed": true}},
		})
	}))
	defer server.Close()

	client := NewMinelistClient()
	result, err := client.CheckVote(context.Background(), siteAt(server.URL), "user-1")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestMinelistClientClaimVote(t *testing.T) {
	claimed := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/votes/claim", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		claimed <- body["user"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewMinelistClient()
	require.NoError(t, client.ClaimVote(context.Background(), siteAt(server.URL), "user-1"))
	assert.Equal(t, "user-1", <-claimed)
}

func TestCraftserversClientSynthesizesDailyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/check", r.URL.Path)
		assert.Equal(t, "Steve", r.URL.Query().Get("username"))
		assert.Equal(t, "api-key-1", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]bool{"hasVoted": true})
	}))
	defer server.Close()

	site := siteAt(server.URL)
	site.Slug = "craftservers.org"

	client := NewCraftserversClient()
	client.now = func() time.Time {
		return time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC)
	}

	result, err := client.CheckVote(context.Background(), site, "Steve")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "craftservers.org-Steve-2025-05-01", result.ExternalVoteID)
	assert.False(t, result.Claimable, "family has no claim endpoint")
}

func TestCraftserversClientNotVoted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"hasVoted": false})
	}))
	defer server.Close()

	client := NewCraftserversClient()
	result, err := client.CheckVote(context.Background(), siteAt(server.URL), "Steve")
	require.NoError(t, err)
	assert.Nil(t, result)
}
