// Package screenshot classifies screen captures through the external
// classification endpoint.
package screenshot

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

// StatusWorking is the classifier code for an on-task screen. Any other
// code means off-task; the exact taxonomy is owned by the external service.
const StatusWorking = 0

// Client calls the screenshot classification endpoint.
type Client struct {
	URL   string
	HTTP  *http.Client
	Retry retry.Policy
}

// New creates a client with a bounded request timeout.
func New(url string, policy retry.Policy) *Client {
	return &Client{
		URL:   url,
		Retry: policy,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Classify returns the status code for the screenshot at bucket/key.
// Failures surface as a DependencyError.
func (c *Client) Classify(ctx context.Context, bucket, key string) (int, error) {
	payload, _ := json.Marshal(map[string]string{
		"bucket_name": bucket,
		"key":         key,
	})

	var status int
	err := retry.Do(ctx, c.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("classifier request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("classifier error %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return retry.Permanent(fmt.Errorf("classifier error %s: %s", resp.Status, string(body)))
		}

		var out struct {
			ScreenshotStatus []struct {
				Name string `json:"Name"`
			} `json:"screenshot_status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return retry.Permanent(fmt.Errorf("decode classifier response: %w", err))
		}
		if len(out.ScreenshotStatus) == 0 {
			return retry.Permanent(fmt.Errorf("classifier returned no status"))
		}
		status, err = strconv.Atoi(out.ScreenshotStatus[0].Name)
		if err != nil {
			return retry.Permanent(fmt.Errorf("classifier status %q not numeric: %w", out.ScreenshotStatus[0].Name, err))
		}
		return nil
	})
	if err != nil {
		return 0, faults.Dependency("screenshot classify", err)
	}
	return status, nil
}
