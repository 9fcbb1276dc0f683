package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/craftlands/votegate/internal/core/domain"
)

var errWebhookAuth = errors.New("webhook authentication failed")

// authenticateWebhook checks an inbound push notification against the
// site's configured auth mode. Unconfigured auth rejects, never accepts.
// A signature secret, when set, is an additional layer on top of the
// configured mode.
func authenticateWebhook(site *domain.VoteSite, r *http.Request, body []byte) error {
	switch site.WebhookAuth {
	case domain.AuthBearer:
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if site.WebhookSecret == "" || !hmac.Equal([]byte(token), []byte(site.WebhookSecret)) {
			return errWebhookAuth
		}
	case domain.AuthBodySecret:
		var payload struct {
			Secret string `json:"secret"`
		}
		if site.WebhookSecret == "" || json.Unmarshal(body, &payload) != nil {
			return errWebhookAuth
		}
		if !hmac.Equal([]byte(payload.Secret), []byte(site.WebhookSecret)) {
			return errWebhookAuth
		}
	case domain.AuthIPAllowlist:
		if !ipAllowed(r.RemoteAddr, site.AllowedIPs) {
			return errWebhookAuth
		}
	default:
		return errWebhookAuth
	}

	if site.SignatureSecret != "" {
		if !verifySignature(r, body, site.SignatureSecret) {
			return errWebhookAuth
		}
	}
	return nil
}

// verifySignature checks X-Signature/X-Hub-Signature headers of the form
// sha256=<hex> computed as HMAC-SHA256 over the raw body.
func verifySignature(r *http.Request, body []byte, secret string) bool {
	header := r.Header.Get("X-Signature")
	if header == "" {
		header = r.Header.Get("X-Hub-Signature")
	}
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

func ipAllowed(remoteAddr string, allowed []string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	for _, ip := range allowed {
		if ip == host {
			return true
		}
	}
	return false
}
