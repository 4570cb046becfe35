// Package coreclient talks to the core platform service for submission
// bookkeeping and leaderboard updates.
package coreclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appErr "codearena/pkg/errors"
)

const requestTimeout = 5 * time.Second

// Client is an internal-key authenticated HTTP client for the core service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// LeaderboardUpdate is the payload for a leaderboard score update.
type LeaderboardUpdate struct {
	ContestID string  `json:"contest_id"`
	ProblemID string  `json:"problem_id"`
	UserID    string  `json:"user_id"`
	Score     float64 `json:"score"`
}

// SubmissionRecord is the payload persisted for every evaluation.
type SubmissionRecord struct {
	ContestID string          `json:"contest_id"`
	ProblemID string          `json:"problem_id"`
	UserID    string          `json:"user_id"`
	Code      string          `json:"code"`
	Processor string          `json:"processor"`
	Score     float64         `json:"score"`
	Results   json.RawMessage `json:"results,omitempty"`
}

// UpdateLeaderboard posts a score update.
func (c *Client) UpdateLeaderboard(ctx context.Context, upd LeaderboardUpdate) error {
	return c.post(ctx, "/leaderboard/update", upd)
}

// SaveSubmission records an evaluated submission.
func (c *Client) SaveSubmission(ctx context.Context, rec SubmissionRecord) error {
	return c.post(ctx, "/submission", rec)
}

// SubmissionCount returns how many submissions the user already made for the
// problem in the contest.
func (c *Client) SubmissionCount(ctx context.Context, userID, contestID, problemID string) (int, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("contestId", contestID)
	q.Set("problemId", problemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/submission/count?"+q.Encode(), nil)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.InternalServerError, "build submission count request")
	}
	req.Header.Set("x-internal-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.SubmissionCountError, "submission count request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, appErr.Newf(appErr.SubmissionCountError, "submission count: status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, appErr.Wrapf(err, appErr.SubmissionCountError, "decode submission count response")
	}
	return out.Count, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "marshal core service payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "build core service request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "core service %s failed", path)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("core service %s: status %d", path, resp.StatusCode)
	}
	return nil
}
