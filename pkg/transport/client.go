package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Client executes capabilities on a remote transport server. It is the
// concrete form of the untrusted-origin path: a client-side handler uses
// it to reach the trusted handler over the wire.
type Client struct {
	baseURL string
	fetcher capability.Fetcher
	session string
}

// NewClient creates a client for the server at baseURL. A nil fetcher
// uses the default HTTP fetcher.
func NewClient(baseURL string, fetcher capability.Fetcher) *Client {
	if fetcher == nil {
		fetcher = capability.DefaultFetcher()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}
}

// WithSession returns a client that stamps every request with the session
// key, letting the server correlate calls.
func (c *Client) WithSession(session string) *Client {
	clone := *c
	clone.session = session
	return &clone
}

// Execute invokes a remote capability and returns its output.
func (c *Client) Execute(ctx context.Context, name string, input map[string]interface{}) (interface{}, error) {
	body, err := json.Marshal(ExecuteRequest{Input: input, Session: c.session})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.fetcher.Fetch(ctx, capability.FetchRequest{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/v1/capabilities/%s/execute", c.baseURL, name),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("remote execute failed: %w", err)
	}

	var result ExecuteResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if !result.Success {
		if result.Error == "" {
			return nil, fmt.Errorf("remote execute failed with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("remote execute failed: %s", result.Error)
	}

	return result.Output, nil
}

// List fetches discovery summaries from the server.
func (c *Client) List(ctx context.Context) ([]capability.Summary, error) {
	resp, err := c.fetcher.Fetch(ctx, capability.FetchRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + "/v1/capabilities",
	})
	if err != nil {
		return nil, fmt.Errorf("remote list failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote list failed with status %d", resp.StatusCode)
	}

	var summaries []capability.Summary
	if err := json.Unmarshal(resp.Body, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode summaries: %w", err)
	}
	return summaries, nil
}

// Describe fetches a single discovery summary.
func (c *Client) Describe(ctx context.Context, name string) (*capability.Summary, error) {
	resp, err := c.fetcher.Fetch(ctx, capability.FetchRequest{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/capabilities/%s", c.baseURL, name),
	})
	if err != nil {
		return nil, fmt.Errorf("remote describe failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &capability.NotFoundError{Capability: name}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote describe failed with status %d", resp.StatusCode)
	}

	var summary capability.Summary
	if err := json.Unmarshal(resp.Body, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}

// RemoteHandler returns a handler that forwards execution to the remote
// server, caching results in the invocation context by input key. Attach
// it as a ClientExecute handler in untrusted processes.
func RemoteHandler(client *Client, name string) capability.Handler {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation) (interface{}, error) {
		params, _ := input.(map[string]interface{})

		cacheKey := ""
		if inv != nil && inv.Cache != nil {
			raw, err := json.Marshal(params)
			if err == nil {
				cacheKey = "remote:" + name + ":" + string(raw)
				if cached, ok := inv.Cache.Get(cacheKey); ok {
					return cached, nil
				}
			}
		}

		output, err := client.Execute(ctx, name, params)
		if err != nil {
			return nil, err
		}

		if cacheKey != "" {
			inv.Cache.Set(cacheKey, output)
		}
		return output, nil
	}
}
