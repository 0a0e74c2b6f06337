package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrProviderUnavailable = errors.New("verification provider unavailable")

// Provider is the external email-verification collaborator. Implementations
// must be safe for concurrent use.
type Provider interface {
	StartVerification(ctx context.Context, email string) (identityID string, err error)
	GetStatus(ctx context.Context, identityID, email string) (Status, error)
}

// httpProvider talks to the verification provider's REST API.
type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) Provider {
	return &httpProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *httpProvider) StartVerification(ctx context.Context, email string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/verifications", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("verification request rejected: status %d", resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return payload.ID, nil
}

func (p *httpProvider) GetStatus(ctx context.Context, identityID, email string) (Status, error) {
	url := p.baseURL + "/v1/verifications/" + identityID
	if identityID == "" {
		url = p.baseURL + "/v1/verifications?email=" + email
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusError, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return StatusError, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusError, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return StatusError, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	switch Status(payload.Status) {
	case StatusPending, StatusVerified, StatusFailed:
		return Status(payload.Status), nil
	default:
		return StatusError, nil
	}
}
