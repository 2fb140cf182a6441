// Package prowlarr implements the remote.Client contract against the
// Prowlarr v1 HTTP API.
package prowlarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/declarr/declarr/remote"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

const (
	defaultTimeout = 30 * time.Second
	apiKeyHeader   = "X-Api-Key"
	mediaTypeJSON  = "application/json"
)

var _ remote.Client = (*Client)(nil)

// Client talks to one Prowlarr instance. It is exclusively owned by a single
// reconciliation engine for the duration of a run; the tag cache is the only
// mutable state and is guarded for safety.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	log     zerolog.Logger

	tagMu  sync.Mutex
	tagIDs map[string]int64 // label -> remote id
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(hostURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL, err := parseHostURL(hostURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, validationError("api key is required", nil)
	}

	client := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(client)
	}
	return client, nil
}

func parseHostURL(hostURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(hostURL), "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, validationError(fmt.Sprintf("invalid host url %q", hostURL), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, validationError(fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	return parsed, nil
}

// do executes one API request and returns the response body. Connection
// failures classify as RemoteUnavailable; HTTP error statuses classify via
// classifyStatusError.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, internalError("failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, internalError("failed to build request", err)
	}
	request.Header.Set(apiKeyHeader, c.apiKey)
	request.Header.Set("Accept", mediaTypeJSON)
	if body != nil {
		request.Header.Set("Content-Type", mediaTypeJSON)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("remote request")
	response, err := c.http.Do(request)
	if err != nil {
		return nil, transportError("remote request failed", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, 1<<24))
	if err != nil {
		return nil, transportError("failed to read remote response body", err)
	}
	if response.StatusCode >= http.StatusBadRequest {
		return nil, classifyStatusError(response.StatusCode, payload)
	}
	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	payload, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return remoteRejected("remote returned an undecodable response", err)
	}
	return nil
}

// FetchFlat reads the single resource of a flat section.
func (c *Client) FetchFlat(ctx context.Context, section schema.Section) (resource.Resource, error) {
	var wire map[string]any
	if err := c.getJSON(ctx, section.Path, &wire); err != nil {
		return resource.Resource{}, err
	}
	return c.decodeResource(ctx, section, wire)
}

// FetchCollection reads all entries of a collection section keyed by name.
func (c *Client) FetchCollection(ctx context.Context, section schema.Section) (resource.Collection, error) {
	var wires []map[string]any
	if err := c.getJSON(ctx, section.Path, &wires); err != nil {
		return nil, err
	}

	collection := resource.Collection{}
	for _, wire := range wires {
		res, err := c.decodeResource(ctx, section, wire)
		if err != nil {
			return nil, err
		}
		if res.Name == "" {
			return nil, remoteRejected(fmt.Sprintf("section %q entry without a name", section.Name), nil)
		}
		if _, dup := collection[res.Name]; dup {
			return nil, remoteRejected(fmt.Sprintf("section %q has duplicate entry %q", section.Name, res.Name), nil)
		}
		collection[res.Name] = res
	}

	if section.Name == "tags" {
		c.cacheTagsFromWire(wires)
	}
	return collection, nil
}

// Create submits a new collection entry. Provider sections are built on top
// of the remote's own schema template so every provider default is carried;
// newly created tags refresh the label cache for later sections.
func (c *Client) Create(ctx context.Context, section schema.Section, res resource.Resource) (resource.Identity, error) {
	wire, err := c.encodeCreate(ctx, section, res)
	if err != nil {
		return resource.Identity{}, err
	}
	payload, err := c.do(ctx, http.MethodPost, section.Path, wire)
	if err != nil {
		return resource.Identity{}, err
	}

	var created map[string]any
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&created); err != nil {
		return resource.Identity{}, remoteRejected("remote returned an undecodable create response", err)
	}
	identity := resource.Identity{ID: wireID(created), Name: res.Name}

	if section.Name == "tags" {
		c.cacheTag(res.Name, identity.ID)
	}
	c.log.Debug().Str("section", section.Name).Str("name", res.Name).Int64("id", identity.ID).Msg("created remote resource")
	return identity, nil
}

// Update converges one remote resource by overlaying the desired values on
// the currently stored wire object and putting the merged resource back.
func (c *Client) Update(ctx context.Context, section schema.Section, id resource.Identity, res resource.Resource, deltas []resource.FieldDelta) error {
	var (
		current map[string]any
		path    string
	)
	switch section.Kind {
	case schema.Flat:
		if err := c.getJSON(ctx, section.Path, &current); err != nil {
			return err
		}
		path = fmt.Sprintf("%s/%d", section.Path, wireID(current))
	default:
		path = fmt.Sprintf("%s/%d", section.Path, id.ID)
		if err := c.getJSON(ctx, path, &current); err != nil {
			return err
		}
	}

	if err := c.encodeInto(ctx, section, res, current); err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPut, path, current); err != nil {
		return err
	}
	c.log.Debug().Str("section", section.Name).Str("name", id.Name).Int("fields", len(deltas)).Msg("updated remote resource")
	return nil
}

// Delete removes one collection entry by its remote id.
func (c *Client) Delete(ctx context.Context, section schema.Section, id resource.Identity) error {
	path := fmt.Sprintf("%s/%d", section.Path, id.ID)
	if _, err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return err
	}
	if section.Name == "tags" {
		c.evictTag(id.Name)
	}
	c.log.Debug().Str("section", section.Name).Str("name", id.Name).Msg("deleted remote resource")
	return nil
}

func wireID(wire map[string]any) int64 {
	value, ok := wire["id"]
	if !ok {
		return 0
	}
	switch typed := value.(type) {
	case json.Number:
		id, err := typed.Int64()
		if err != nil {
			return 0
		}
		return id
	case float64:
		return int64(typed)
	case int64:
		return typed
	default:
		return 0
	}
}
