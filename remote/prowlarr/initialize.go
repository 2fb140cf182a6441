package prowlarr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/declarr/declarr/faults"
)

// initializeJSPattern extracts the bootstrap object the Prowlarr web UI
// embeds in /initialize.js. The object carries the instance API key when
// authentication is disabled or the request arrives from a trusted network.
var initializeJSPattern = regexp.MustCompile(`(?s)^window\.Prowlarr = ({.*});`)

// ProbeAPIKey fetches the instance API key from /initialize.js without
// credentials. It only succeeds against instances that expose the bootstrap
// script unauthenticated, which is the out-of-the-box state of a fresh
// install.
func ProbeAPIKey(ctx context.Context, hostURL string, opts ...Option) (string, error) {
	baseURL, err := parseHostURL(hostURL)
	if err != nil {
		return "", err
	}

	probe := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(probe)
	}

	target := *baseURL
	target.Path = target.Path + "/initialize.js"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", internalError("failed to build probe request", err)
	}

	response, err := probe.http.Do(request)
	if err != nil {
		return "", transportError("api key probe failed", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return "", transportError("failed to read probe response", err)
	}
	if response.StatusCode != http.StatusOK {
		return "", classifyStatusError(response.StatusCode, payload)
	}

	match := initializeJSPattern.FindSubmatch(payload)
	if match == nil {
		return "", remoteRejected("initialize.js did not carry the expected bootstrap object", nil)
	}

	var bootstrap struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(match[1], &bootstrap); err != nil {
		return "", remoteRejected("initialize.js bootstrap object is not valid JSON", err)
	}
	if bootstrap.APIKey == "" {
		return "", remoteRejected("instance requires authentication; supply an api key", nil)
	}
	return bootstrap.APIKey, nil
}

// WaitReady polls the status endpoint until the instance answers or the
// context expires. Fresh containers take a few seconds to start serving.
// Non-retryable failures (bad credentials, rejected requests) end the wait
// immediately; only connection-level faults keep the poll going.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		_, err := c.SystemStatus(ctx)
		if err == nil {
			return nil
		}
		if !faults.Retryable(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return transportError(fmt.Sprintf("instance did not become ready: %v", ctx.Err()), lastErr)
		case <-ticker.C:
		}
	}
}
