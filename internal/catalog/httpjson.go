package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	maxRetries     = 3
	initialBackoff = time.Second
	// maxRetryWait bounds one wait between attempts. A longer Retry-After
	// fails the fetch instead, leaving the provider to its health backoff.
	maxRetryWait     = 10 * time.Second
	maxResponseBytes = 16 << 20 // emote sets can be large; cap reads at 16 MiB
)

// StatusError is returned by GetJSON for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	// RetryAfter is set when the server asked for a wait longer than
	// GetJSON will sleep.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("catalog: GET %s: status %d, retry after %s", e.URL, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("catalog: GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// GetJSON fetches url and decodes the JSON body into T. It retries 429 and
// 5xx responses up to three times with exponential backoff, honouring a
// Retry-After header in seconds up to maxRetryWait.
func GetJSON[T any](ctx context.Context, client *http.Client, url string, header http.Header) (*T, error) {
	if client == nil {
		client = http.DefaultClient
	}
	backoff := initialBackoff

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("catalog: create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("catalog: GET %s: %w", url, err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", url, err)
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if retryable && attempt < maxRetries-1 {
			if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
				backoff = time.Duration(s) * time.Second
			}
			if backoff > maxRetryWait {
				return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, RetryAfter: backoff}
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
		}

		var out T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("catalog: decode %s: %w", url, err)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("catalog: GET %s: max retries exceeded", url)
}
