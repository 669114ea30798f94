// Package vision asks the external recognition service whether an image
// stored in an object bucket contains a face.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"focusmon/internal/faults"
	"focusmon/internal/retry"
)

// Client calls the face detection endpoint of the vision service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Retry   retry.Policy

	// Skip short-circuits the service with a positive detection,
	// for dev environments without the vision backend.
	Skip bool
}

// New creates a client with a bounded request timeout.
func New(baseURL string, skip bool, policy retry.Policy) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		Retry:   policy,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HasFace reports whether the service detects at least one face in the
// object at bucket/key. Failures surface as a DependencyError.
func (c *Client) HasFace(ctx context.Context, bucket, key string) (bool, error) {
	if c.Skip {
		return true, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"bucket_name": bucket,
		"key":         key,
	})

	var out struct {
		FaceDetails []json.RawMessage `json:"face_details"`
	}
	err := retry.Do(ctx, c.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect-faces", bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("vision request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("vision service error %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return retry.Permanent(fmt.Errorf("vision service error %s: %s", resp.Status, string(body)))
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return retry.Permanent(fmt.Errorf("decode vision response: %w", err))
		}
		return nil
	})
	if err != nil {
		return false, faults.Dependency("face check", err)
	}

	// At least one face iff the detail list is non-empty.
	return len(out.FaceDetails) > 0, nil
}
