// Package frontend forwards human-readable summaries to the dashboard API.
// This is the final, non-critical step of both pipelines: callers log a
// failed publish but still treat the event as processed.
package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"focusmon/internal/faults"
	"focusmon/internal/retry"
)

// UserStatus is the per-event summary shown on the dashboard. String
// fields mirror the dashboard API contract ("0"/"1" flags, score rendered
// with two decimals).
type UserStatus struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	UserStatusInfo  string `json:"user_status_info"`
	FocusScore      string `json:"focus_score"`
	Focusing        string `json:"focusing"`
	ScreeningStatus string `json:"screening_status"`
	Timestamp       string `json:"timestamp"`
}

// TopicPost is the dashboard payload for a newly extracted topic.
type TopicPost struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

// FormatScore renders a score the way the dashboard expects it.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

// Client posts summaries to the dashboard API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Retry   retry.Policy
}

// New creates a client with a bounded request timeout.
func New(baseURL string, policy retry.Policy) *Client {
	return &Client{
		BaseURL: baseURL,
		Retry:   policy,
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// PublishUserStatus posts a focus summary to the dashboard.
func (c *Client) PublishUserStatus(ctx context.Context, st UserStatus) error {
	return c.post(ctx, "/user", st)
}

// PublishTopic posts a topic summary to the dashboard.
func (c *Client) PublishTopic(ctx context.Context, post TopicPost) error {
	return c.post(ctx, "/post", post)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return faults.Dependency("frontend publish", err)
	}
	err = retry.Do(ctx, c.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("frontend request failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("frontend error %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			return retry.Permanent(fmt.Errorf("frontend error %s", resp.Status))
		}
		return nil
	})
	return faults.Dependency("frontend publish", err)
}
