// Package indexing pings the search-indexing endpoint for freshly
// published URLs. Notifications are fire-and-forget: a failed ping is
// logged and never fails the publish stage.
package indexing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notifier submits published URLs to a search-engine indexing endpoint.
type Notifier struct {
	endpoint string
	client   *http.Client
}

// NewNotifier configures the indexing endpoint. An empty endpoint yields a
// notifier whose pings are no-ops.
func NewNotifier(endpoint string) *Notifier {
	return &Notifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping submits one published URL for indexing.
func (n *Notifier) Ping(ctx context.Context, publishedURL string) error {
	if n.endpoint == "" {
		return nil
	}

	target := fmt.Sprintf("%s?url=%s", n.endpoint, url.QueryEscape(publishedURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("indexing endpoint error: %s", resp.Status)
	}
	return nil
}
