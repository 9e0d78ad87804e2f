package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Client issues probe calls against one backend host.
//
// The transport is guarded by a circuit breaker so a flapping backend
// fails fast instead of tying up every widget's goroutine. Individual
// probe calls are never retried: a failed widget settles as Error and the
// only recovery path is a full board refetch.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a probe client for the given backend base URL.
// token is the session JWT obtained from Login; it may be empty for
// backends that do not require auth.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		breaker: newBreaker(baseURL),
	}
}

// newBreaker creates the per-host circuit breaker.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3, // Allow 3 test requests in half-open state
		Interval:    0, // Don't clear counts automatically
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A tolerated schema-absence reply is a healthy backend.
			var f *Failure
			if errors.As(err, &f) && f.Kind == FailureTolerated {
				return true
			}
			// User cancellation is not a backend failure.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})
}

// Call executes a single probe request and returns the raw payload.
// On failure the returned error is always a *Failure carrying the
// tolerated/genuine classification.
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, Genuine(fmt.Errorf("backend unavailable: %w", err))
		}
		var f *Failure
		if errors.As(err, &f) {
			return nil, f
		}
		return nil, Genuine(err)
	}
	return result.(json.RawMessage), nil
}

// do performs the HTTP round trip and maps the wire envelope to the
// failure taxonomy.
func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, Genuine(fmt.Errorf("encoding request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/probe", bytes.NewReader(body))
	if err != nil {
		return nil, Genuine(fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, Genuine(fmt.Errorf("calling %s: %w", req.Method, err))
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, Genuine(fmt.Errorf("reading response for %s: %w", req.Method, err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, Genuine(fmt.Errorf("%s returned status %d", req.Method, httpResp.StatusCode))
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, Genuine(fmt.Errorf("decoding response for %s: %w", req.Method, err))
	}

	if resp.Err != nil {
		cause := fmt.Errorf("%s: %s (%s)", req.Method, resp.Err.Message, resp.Err.Code)
		if resp.Err.Code == ErrCodeFieldNotFound {
			return nil, Tolerated(cause)
		}
		return nil, Genuine(cause)
	}

	return resp.Data, nil
}
