package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/telecare-api/internal/domain"
)

// TokenClient fetches video-SDK credentials from the token-issuing endpoint.
// The endpoint verifies the caller's session bearer and returns a credential
// scoped to the requested user id.
type TokenClient struct {
	endpoint string
	bearer   string
	http     *http.Client
}

func NewTokenClient(endpoint, bearer string) *TokenClient {
	return &TokenClient{
		endpoint: endpoint,
		bearer:   bearer,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TokenClient) Token(ctx context.Context, profileID string) (string, error) {
	body, err := json.Marshal(map[string]string{"user_id": profileID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("video token request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("video token rejected, re-authenticate: %w", domain.ErrUnauthorized)
	default:
		return "", fmt.Errorf("video token endpoint returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode video token response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("video token endpoint returned empty token")
	}
	return out.Token, nil
}
