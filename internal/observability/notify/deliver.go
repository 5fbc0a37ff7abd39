package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Delivery posts JSON bodies with a bounded number of linearly backed-off retries.
type Delivery struct {
	Name       string
	Client     *http.Client
	RetryLimit int
	// Backoff is the step added per attempt; zero uses 200ms.
	Backoff time.Duration
}

// Post sends body to url until it succeeds, retries run out, or ctx ends.
func (d Delivery) Post(ctx context.Context, url string, body []byte) error {
	step := d.Backoff
	if step <= 0 {
		step = 200 * time.Millisecond
	}
	attempts := max(d.RetryLimit, 0) + 1

	var lastErr error
	for attempt := range attempts {
		if lastErr = d.post(ctx, url, body); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (d Delivery) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", d.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", d.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if readErr != nil {
			return fmt.Errorf("read %s error response: %w", d.Name, readErr)
		}
		return fmt.Errorf("%s %s: %s", d.Name, resp.Status, strings.TrimSpace(string(msg)))
	}
	if _, err = io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain %s response body: %w", d.Name, err)
	}
	return nil
}

// Fallback returns value, or fallback when value is blank.
func Fallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
