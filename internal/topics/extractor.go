package topics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"focusmon/internal/faults"
	"focusmon/internal/retry"
)

// Extractor turns raw message texts into a short topic string. The default
// implementation delegates to the external NLP service; tests substitute
// fakes.
type Extractor interface {
	ExtractTopic(ctx context.Context, texts []string) (string, error)
}

// HTTPExtractor calls the external topic extraction endpoint.
type HTTPExtractor struct {
	URL   string
	HTTP  *http.Client
	Retry retry.Policy

	// Skip short-circuits the service with the first text line,
	// for dev environments without the NLP backend.
	Skip bool
}

// NewHTTPExtractor creates an extractor client with a bounded timeout.
func NewHTTPExtractor(url string, skip bool, policy retry.Policy) *HTTPExtractor {
	return &HTTPExtractor{
		URL:   url,
		Skip:  skip,
		Retry: policy,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ExtractTopic returns a non-empty topic for non-empty input. Failures
// surface as a DependencyError.
func (e *HTTPExtractor) ExtractTopic(ctx context.Context, texts []string) (string, error) {
	if e.Skip {
		return strings.TrimSpace(texts[0]), nil
	}

	payload, _ := json.Marshal(map[string][]string{"texts": texts})

	var topic string
	err := retry.Do(ctx, e.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("extractor request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("extractor error %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return retry.Permanent(fmt.Errorf("extractor error %s: %s", resp.Status, string(body)))
		}

		var out struct {
			Topic string `json:"topic"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return retry.Permanent(fmt.Errorf("decode extractor response: %w", err))
		}
		if out.Topic == "" {
			return retry.Permanent(fmt.Errorf("extractor returned empty topic"))
		}
		topic = out.Topic
		return nil
	})
	if err != nil {
		return "", faults.Dependency("topic extract", err)
	}
	return topic, nil
}
