package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"focusmon/internal/faults"
	"focusmon/internal/retry"
)

// Actuator signals the external relay endpoint when a warning fires.
type Actuator struct {
	URL   string
	HTTP  *http.Client
	Retry retry.Policy
}

// NewActuator creates an actuator client with a bounded request timeout.
func NewActuator(url string, policy retry.Policy) *Actuator {
	return &Actuator{
		URL:   url,
		Retry: policy,
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Signal performs the idempotent fire-and-forget GET against the actuator.
func (a *Actuator) Signal(ctx context.Context) error {
	err := retry.Do(ctx, a.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := a.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("actuator request failed: %w", err)
		}
		defer resp.Body.Close()
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("actuator error %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			return retry.Permanent(fmt.Errorf("actuator error %s", resp.Status))
		}
		return nil
	})
	return faults.Dependency("actuator signal", err)
}
