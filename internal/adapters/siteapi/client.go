// Package siteapi implements HTTP clients for the external vote site API
// families. Every call carries a bounded timeout; a slow site must not
// stall a polling pass beyond its own goroutine.
package siteapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func unexpectedStatus(resp *http.Response) error {
	return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, resp.Request.URL.Host)
}
