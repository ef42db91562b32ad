package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// idempotencyHeader matches the header POST /events reads.
const idempotencyHeader = "Idempotency-Key"

// outcome of one submission.
type outcome int

const (
	outcomeFailed outcome = iota
	outcomeCreated
	outcomeDuplicate
	outcomeBusy
)

type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// getJSON decodes a 200 response of GET path into v.
func (c *httpClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// postEvent submits s once and classifies the answer.
func (c *httpClient) postEvent(ctx context.Context, s Submission) (outcome, error) {
	body, err := json.Marshal(s.Draft)
	if err != nil {
		return outcomeFailed, fmt.Errorf("encode draft: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, s.Key)

	resp, err := c.client.Do(req)
	if err != nil {
		return outcomeFailed, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		return outcomeCreated, nil
	case http.StatusOK:
		return outcomeDuplicate, nil
	case http.StatusTooManyRequests:
		return outcomeBusy, nil
	default:
		return outcomeFailed, fmt.Errorf("POST /events: status %d", resp.StatusCode)
	}
}
