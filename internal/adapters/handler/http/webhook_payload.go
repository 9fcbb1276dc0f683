package http

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
)

// webhookVote is the adapter output: the minimum a push payload must
// yield before the processor gets involved.
type webhookVote struct {
	UserID         string
	ExternalVoteID string
	VotedAt        time.Time
}

// payloadAdapter maps one site family's payload shape to a webhookVote.
// Adapters are pure; side effects stay in the handler.
type payloadAdapter func(body []byte) (webhookVote, error)

// webhookFamilies is the closed set of push payload shapes we understand,
// keyed by site family. inferenceOrder fixes the precedence when the
// generic endpoint has to guess the family from the payload shape.
var webhookFamilies = map[string]payloadAdapter{
	"topsites": parseTopsites,
	"gamelist": parseGamelist,
}

var inferenceOrder = []string{"topsites", "gamelist"}

// parseTopsites handles the flat shape: a discord-id field plus a
// username plus a unix timestamp.
//
//	{"user": "190550349", "username": "Steve", "timestamp": 1714000000, "id": "v-123"}
func parseTopsites(body []byte) (webhookVote, error) {
	var payload struct {
		User      string `json:"user"`
		Username  string `json:"username"`
		Timestamp int64  `json:"timestamp"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhookVote{}, fmt.Errorf("malformed topsites payload: %w", err)
	}
	if payload.User == "" {
		return webhookVote{}, domain.ErrMissingIdentity
	}

	v := webhookVote{UserID: payload.User, ExternalVoteID: payload.ID}
	if payload.Timestamp > 0 {
		v.VotedAt = time.Unix(payload.Timestamp, 0).UTC()
	}
	return v, nil
}

// parseGamelist handles the nested shape: a voter object plus a vote-time
// field.
//
//	{"voter": {"id": "190550349", "name": "Steve"}, "votedAt": "2024-04-25T12:00:00Z", "voteId": "8831"}
func parseGamelist(body []byte) (webhookVote, error) {
	var payload struct {
		Voter struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"voter"`
		VotedAt string `json:"votedAt"`
		VoteID  string `json:"voteId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhookVote{}, fmt.Errorf("malformed gamelist payload: %w", err)
	}
	if payload.Voter.ID == "" {
		return webhookVote{}, domain.ErrMissingIdentity
	}

	v := webhookVote{UserID: payload.Voter.ID, ExternalVoteID: payload.VoteID}
	if payload.VotedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.VotedAt); err == nil {
			v.VotedAt = t
		}
	}
	return v, nil
}

// inferFamily guesses the payload family from its structure. Best-effort
// compatibility shim for senders that cannot set a site parameter; the
// routed endpoints are the primary contract.
func inferFamily(body []byte) (string, bool) {
	var shape struct {
		User      string          `json:"user"`
		Username  string          `json:"username"`
		Timestamp int64           `json:"timestamp"`
		Voter     json.RawMessage `json:"voter"`
		VotedAt   string          `json:"votedAt"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return "", false
	}

	for _, family := range inferenceOrder {
		switch family {
		case "topsites":
			if shape.User != "" && shape.Username != "" && shape.Timestamp > 0 {
				return family, true
			}
		case "gamelist":
			if len(shape.Voter) > 0 && shape.VotedAt != "" {
				return family, true
			}
		}
	}
	return "", false
}
