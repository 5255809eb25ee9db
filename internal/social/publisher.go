// Package social posts derived content to the social network. Each
// language variant is posted independently; the caller owns retry policy.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Publisher posts text plus a canonical link and returns the network's
// post reference.
type Publisher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewPublisher registers the network endpoint and access token.
func NewPublisher(baseURL, token string) *Publisher {
	return &Publisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// PublishPost submits one post and returns its external reference.
func (p *Publisher) PublishPost(ctx context.Context, text, canonicalURL string) (string, error) {
	if p.baseURL == "" || p.token == "" {
		return "", fmt.Errorf("social publisher misconfigured")
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("link", canonicalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/posts", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("social network error: %s", resp.Status)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.ID == "" {
		return "", fmt.Errorf("social network returned no post id")
	}
	return body.ID, nil
}
