package payapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPClient implements Client over JSON-on-HTTP.
//
// Each operation maps to POST {baseURL}/{op}. Requests carry a unique
// X-Request-Id header so retried calls are distinguishable server-side,
// and a bearer token when configured.
//
// Response handling follows the step layer's error taxonomy:
//   - 2xx with a JSON body: returned as the result map.
//   - 4xx with a JSON body: a well-formed rejection, also returned as
//     the result map (the body carries the rejection status/code).
//   - anything else (5xx, undecodable body, transport failure,
//     timeout): returned as an error, so the calling step leaves its
//     guarded field unwritten and the call can be retried.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// DefaultTimeout bounds one operation call when the caller's context
// carries no earlier deadline.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient creates an HTTPClient for the given base URL.
//
// apiKey may be empty for backends that authenticate elsewhere.
// httpClient may be nil, in which case a client with DefaultTimeout is
// used.
func NewHTTPClient(baseURL, apiKey string, httpClient *http.Client) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}, nil
}

// Call implements Client.
func (c *HTTPClient) Call(ctx context.Context, op string, payload map[string]interface{}) (map[string]interface{}, error) {
	if op == "" {
		return nil, errors.New("operation cannot be empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload for %s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeResult(op, raw)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Well-formed rejections come back as JSON; the caller reads
		// the rejection status out of the map. An undecodable 4xx body
		// is treated as transient like any other unusable response.
		result, err := decodeResult(op, raw)
		if err != nil {
			return nil, fmt.Errorf("call %s rejected with status %d and unreadable body", op, resp.StatusCode)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("call %s failed with status %d", op, resp.StatusCode)
	}
}

func decodeResult(op string, raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return result, nil
}
