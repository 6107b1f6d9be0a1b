// Package oracle is the HTTP client for the semantic-similarity scoring
// service. The service compares a model answer against a student answer and
// returns a similarity in [0,1]; everything about how it computes that is
// opaque to this client.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the similarity service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type evaluateRequest struct {
	ModelAnswer   string `json:"model_answer"`
	StudentAnswer string `json:"student_answer"`
}

type evaluateResponse struct {
	Similarity float64 `json:"similarity"`
	Error      string  `json:"error"`
}

// Evaluate returns the similarity between a model answer and a student
// answer. Callers are expected to clamp and sanitize the result; this client
// only transports it.
func (c *Client) Evaluate(ctx context.Context, modelAnswer, studentAnswer string) (float64, error) {
	body, err := json.Marshal(evaluateRequest{ModelAnswer: modelAnswer, StudentAnswer: studentAnswer})
	if err != nil {
		return 0, fmt.Errorf("marshal evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build evaluate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("similarity service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("similarity service returned status %d", resp.StatusCode)
	}

	var out evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode evaluate response: %w", err)
	}
	if out.Error != "" {
		return 0, fmt.Errorf("similarity service error: %s", out.Error)
	}
	return out.Similarity, nil
}

// Ping checks the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("similarity service health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("similarity service health returned status %d", resp.StatusCode)
	}
	return nil
}
